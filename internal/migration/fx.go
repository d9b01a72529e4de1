package migration

import (
	"context"

	"github.com/smallbiznis/gymdesk/internal/config"
	membershiptypedomain "github.com/smallbiznis/gymdesk/internal/membershiptype/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, catalog membershiptypedomain.Service, log *zap.Logger) error {
		if err := Apply(conn); err != nil {
			return err
		}
		log.Info("schema ready", zap.String("dialect", conn.Dialector.Name()))

		if !cfg.SeedCatalog {
			return nil
		}
		return catalog.EnsureDefaults(context.Background())
	}),
)
