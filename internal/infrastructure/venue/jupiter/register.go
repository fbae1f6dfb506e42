package jupiter

import (
	"net/http"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
	"dexarb/internal/infrastructure/config"
	"dexarb/internal/infrastructure/venue"
)

// init 注册数据源工厂，配置中 source = "jupiter" 的交易所使用它
func init() {
	venue.Register(SourceName, func(cfg config.VenueConfig, tokens *model.TokenBook) (port.PoolSource, error) {
		return New(cfg.Endpoint, cfg.Fee(DefaultFee), cfg.DefaultReserve, tokens, &http.Client{Timeout: cfg.Timeout()}), nil
	})
}
