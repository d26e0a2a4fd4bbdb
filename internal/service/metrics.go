package service

import "github.com/prometheus/client_golang/prometheus"

var (
	usersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bounty_users_created_total",
		Help: "Users created on first wallet connection.",
	})

	referralAttributions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bounty_referral_attributions_total",
		Help: "Referral attributions attempted for new users, by outcome.",
	}, []string{"outcome"})

	xConnections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bounty_x_connections_total",
		Help: "Completed X authorization callbacks, by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(usersCreated, referralAttributions, xConnections)
}
