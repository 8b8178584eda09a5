package rating

import (
	"github.com/smallbiznis/signbilling/internal/rating/repository"
	"github.com/smallbiznis/signbilling/internal/rating/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rating.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
