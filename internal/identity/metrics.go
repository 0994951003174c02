package identity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "files_manager_session_lookups_total",
			Help: "Количество обращений к хранилищу сессий",
		},
		[]string{"result"}, // hit, miss, error
	)

	jwtValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "files_manager_jwt_validations_total",
			Help: "Количество проверок Bearer JWT",
		},
		[]string{"result"}, // ok, invalid
	)
)
