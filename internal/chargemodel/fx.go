package chargemodel

import (
	"github.com/smallbiznis/chargeengine/internal/chargemodel/service"
	"go.uber.org/fx"
)

var Module = fx.Module("chargemodel.service",
	fx.Provide(service.NewService),
)
