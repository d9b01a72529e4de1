package membershipstatus

import (
	"github.com/smallbiznis/gymdesk/internal/membershipstatus/repository"
	"github.com/smallbiznis/gymdesk/internal/membershipstatus/service"
	"go.uber.org/fx"
)

var Module = fx.Module("membershipstatus.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
