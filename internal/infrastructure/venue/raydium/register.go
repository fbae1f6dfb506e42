package raydium

import (
	"net/http"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
	"dexarb/internal/infrastructure/config"
	"dexarb/internal/infrastructure/venue"
)

// init 注册数据源工厂，配置中 source = "raydium" 的交易所使用它
func init() {
	venue.Register(SourceName, func(cfg config.VenueConfig, _ *model.TokenBook) (port.PoolSource, error) {
		return New(cfg.Endpoint, cfg.Fee(DefaultFee), cfg.DefaultReserve, &http.Client{Timeout: cfg.Timeout()}), nil
	})
}
