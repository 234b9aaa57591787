package config

type App struct {
	Port          string `env:"APP_PORT,default=8080"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	JWTSecret     string `env:"JWT_SECRET,default=local_dev_secret"`
	JWTTTLHours   int    `env:"JWT_TTL_HOURS,default=24"`
	SweepInterval int    `env:"OVERDUE_SWEEP_SECONDS,default=60"`
	AdminCode     string `env:"ADMIN_CODE,default=admin"`
	AdminPassword string `env:"ADMIN_PASSWORD,default=admin123"`
	Env           string `env:"APP_ENV,default=dev"`
}
