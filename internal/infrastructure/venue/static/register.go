package static

import (
	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
	"dexarb/internal/infrastructure/config"
	"dexarb/internal/infrastructure/venue"
)

// init 注册数据源工厂，配置中 source = "static" 的交易所使用它
func init() {
	venue.Register(SourceName, func(cfg config.VenueConfig, tokens *model.TokenBook) (port.PoolSource, error) {
		return New(venue.PoolsFromConfig(cfg.Name, cfg.Pools, cfg.Fee(defaultFee), tokens)), nil
	})
}
