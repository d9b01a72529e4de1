package sale

import (
	"github.com/smallbiznis/gymdesk/internal/sale/repository"
	"github.com/smallbiznis/gymdesk/internal/sale/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sale.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
