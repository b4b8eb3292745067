package config

const (
	EnvPrefix = "MAILLOT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "MAILLOT_APP_ENV"
	EnvPort     = "MAILLOT_APP_PORT"
	EnvDBDSN    = "MAILLOT_DB_DSN"
	EnvDBHost   = "MAILLOT_DB_HOST"
	EnvDBUser   = "MAILLOT_DB_USER"
	EnvDBName   = "MAILLOT_DB_NAME"
	EnvDBDriver = "MAILLOT_DB_DRIVER"
	EnvRedisURL = "MAILLOT_REDIS_URL"

	EnvJWTSecret  = "MAILLOT_JWT_SECRET"
	EnvJWTIssuer  = "MAILLOT_JWT_ISSUER"
	EnvJWTExpMins = "MAILLOT_JWT_EXPIRATION_MINUTES"

	EnvShippingCost = "MAILLOT_CHECKOUT_SHIPPING_COST"

	EnvGatewayProvider   = "MAILLOT_GATEWAY_PROVIDER"
	EnvGatewayMode       = "MAILLOT_GATEWAY_MODE"
	EnvGatewayTimeout    = "MAILLOT_GATEWAY_TIMEOUT"
	EnvGatewayMasterKey  = "MAILLOT_PAYDUNYA_MASTER_KEY"
	EnvGatewayPrivateKey = "MAILLOT_PAYDUNYA_PRIVATE_KEY"
	EnvGatewayToken      = "MAILLOT_PAYDUNYA_TOKEN"
	EnvGatewayWebhook    = "MAILLOT_GATEWAY_WEBHOOK_SECRET"

	EnvSquareAccessToken = "MAILLOT_SQUARE_ACCESS_TOKEN"
	EnvSquareLocationID  = "MAILLOT_SQUARE_LOCATION_ID"
)

var legacyDBEnvVars = []string{
	EnvDBHost,
	EnvDBUser,
	EnvDBName,
}
