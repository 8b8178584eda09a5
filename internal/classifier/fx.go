package classifier

import (
	"github.com/smallbiznis/signbilling/internal/classifier/repository"
	"github.com/smallbiznis/signbilling/internal/classifier/service"
	"go.uber.org/fx"
)

var Module = fx.Module("classifier.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
