package venue

import "errors"

var (
	// ErrUnknownSource 未注册的数据源类型
	ErrUnknownSource = errors.New("unknown pool source")
	// ErrNoPools 数据源没有返回任何有效池
	ErrNoPools = errors.New("no valid pools")
	// ErrNoRoute 交易所没有该代币对的可用池
	ErrNoRoute = errors.New("no pool for token pair")
)
