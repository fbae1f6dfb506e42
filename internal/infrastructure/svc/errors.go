package svc

import "errors"

// ErrNoVenuesEnabled 错误：没有可用的交易所
var ErrNoVenuesEnabled = errors.New("no venues enabled")

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")

// ErrPublisherInitFailed 错误：消息队列初始化失败
var ErrPublisherInitFailed = errors.New("publisher initialization failed")
