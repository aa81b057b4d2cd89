// README: Zap logger construction (development output locally, JSON in every other env).
package infra

import "go.uber.org/zap"

func NewLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
