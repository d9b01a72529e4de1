package membershiptype

import (
	"github.com/smallbiznis/gymdesk/internal/membershiptype/repository"
	"github.com/smallbiznis/gymdesk/internal/membershiptype/service"
	"go.uber.org/fx"
)

var Module = fx.Module("membershiptype.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
