package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/custom_search/app/gateway/internal/biz"
	"github.com/iWorld-y/custom_search/app/gateway/internal/data"
	"github.com/iWorld-y/custom_search/app/gateway/internal/service"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/engine"
)

// ProviderSet 是网关服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,
	NewRateLimiterFromConf,
	NewSearchEngine,
	wire.Bind(new(biz.Searcher), new(*engine.Engine)),

	// Data providers
	data.NewData,
	data.NewCacheOptions,
	data.NewCache,

	// UseCase providers
	biz.NewSearchUseCase,

	// Service providers
	service.NewSearchService,
)
