package service

import (
	"github.com/regforecast/backend/internal/domain"
)

// DataRepository is re-exported from domain for convenience
type DataRepository = domain.RegistrationRepository
