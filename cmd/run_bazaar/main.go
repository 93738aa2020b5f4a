package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rlhf_platform/run_bazaar/auth"
	"rlhf_platform/run_bazaar/orchestrator"
	"rlhf_platform/run_bazaar/orchestrator/nomad"
	"rlhf_platform/run_bazaar/schema"
	"rlhf_platform/run_bazaar/services"
	"rlhf_platform/run_bazaar/storage"
	"rlhf_platform/utils/logging"

	"github.com/caarlos0/env/v10"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type runBazaarEnv struct {
	IngressHostname         string `env:"INGRESS_HOSTNAME,required"`
	PrivatePlatformEndpoint string `env:"PRIVATE_PLATFORM_ENDPOINT,required"`

	NomadEndpoint string `env:"NOMAD_ENDPOINT,required"`
	NomadToken    string `env:"TASK_RUNNER_TOKEN,required"`

	ShareDir  string `env:"SHARE_DIR,required"`
	JwtSecret string `env:"JWT_SECRET,required"`

	AdminUsername string `env:"ADMIN_USERNAME,required"`
	AdminEmail    string `env:"ADMIN_MAIL,required"`
	AdminPassword string `env:"ADMIN_PASSWORD,required"`

	DockerRegistry string `env:"DOCKER_REGISTRY"`
	DockerUsername string `env:"DOCKER_USERNAME"`
	DockerPassword string `env:"DOCKER_PASSWORD"`
	Tag            string `env:"TAG"`
	TrainerImage   string `env:"TRAINER_IMAGE_NAME"`

	// These args are only needed if the trainer image is not specified, this is
	// used to run locally.
	PythonPath string `env:"PYTHON_PATH"`
	TrainerDir string `env:"TRAINER_DIR"`

	DatabaseUri string `env:"DATABASE_URI,required"`

	WandbApiKey string `env:"WANDB_API_KEY"`

	AwsAccessKey       string `env:"AWS_ACCESS_KEY"`
	AwsAccessSecret    string `env:"AWS_ACCESS_SECRET"`
	AwsRegionName      string `env:"AWS_REGION_NAME"`
	AzureAccountName   string `env:"AZURE_ACCOUNT_NAME"`
	AzureAccountKey    string `env:"AZURE_ACCOUNT_KEY"`
	GcpCredentialsFile string `env:"GCP_CREDENTIALS_FILE"`
}

func loadEnv(envFile string) runBazaarEnv {
	if envFile != "" {
		slog.Info(fmt.Sprintf("loading env from file %v", envFile))
		if err := godotenv.Load(envFile); err != nil {
			log.Fatalf("error loading .env file '%v': %v", envFile, err)
		}
	}

	var cfg runBazaarEnv
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing env variables: %v", err)
	}

	if cfg.TrainerImage == "" && (cfg.PythonPath == "" || cfg.TrainerDir == "") {
		log.Fatal("If TRAINER_IMAGE_NAME env var is not specified then PYTHON_PATH and TRAINER_DIR env vars must be provided.")
	} else if cfg.TrainerImage != "" && cfg.Tag == "" {
		log.Fatal("If TRAINER_IMAGE_NAME env var is specified then TAG must be specified as well.")
	}

	return cfg
}

func (env *runBazaarEnv) postgresDsn() string {
	parts, err := url.Parse(env.DatabaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func (env *runBazaarEnv) backendDriver() orchestrator.Driver {
	if env.TrainerImage == "" {
		return orchestrator.LocalDriver{
			PythonPath: env.PythonPath,
			TrainerDir: env.TrainerDir,
		}
	}

	return orchestrator.DockerDriver{
		ImageName: env.TrainerImage,
		Tag:       env.Tag,
		DockerEnv: orchestrator.DockerEnv{
			Registry:       env.DockerRegistry,
			DockerUsername: env.DockerUsername,
			DockerPassword: env.DockerPassword,
			ShareDir:       env.ShareDir,
		},
	}
}

func (env *runBazaarEnv) cloudCredentials() orchestrator.CloudCredentials {
	return orchestrator.CloudCredentials{
		AwsAccessKey:       env.AwsAccessKey,
		AwsAccessSecret:    env.AwsAccessSecret,
		AwsRegionName:      env.AwsRegionName,
		AzureAccountName:   env.AzureAccountName,
		AzureAccountKey:    env.AzureAccountKey,
		GcpCredentialsFile: env.GcpCredentialsFile,
	}
}

func initDb(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	err = db.AutoMigrate(
		&schema.Run{}, &schema.RunAttribute{}, &schema.User{},
		&schema.JobLog{}, &schema.Upload{},
	)
	if err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}

	return db
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	port := flag.Int("port", 8000, "Port to run server on")

	flag.Parse()

	env := loadEnv(*envFile)

	err := os.MkdirAll(filepath.Join(env.ShareDir, "logs/"), 0777)
	if err != nil {
		log.Fatalf("error creating log dir: %v", err)
	}

	logFile, err := os.OpenFile(filepath.Join(env.ShareDir, "logs/run_bazaar.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer logFile.Close()

	auditLog, err := os.OpenFile(filepath.Join(env.ShareDir, "logs/audit.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening audit log file: %v", err)
	}
	defer auditLog.Close()

	logging.InitLogging(logFile, "run_bazaar")

	db := initDb(env.postgresDsn())

	orchestratorClient := nomad.NewNomadClient(env.NomadEndpoint, env.NomadToken, env.IngressHostname)

	sharedStorage := storage.NewSharedDisk(env.ShareDir)

	variables := services.Variables{
		BackendDriver: env.backendDriver(),
		DockerRegistry: services.DockerRegistry{
			Registry:       env.DockerRegistry,
			DockerUsername: env.DockerUsername,
			DockerPassword: env.DockerPassword,
		},
		ShareDir:         env.ShareDir,
		PlatformEndpoint: env.PrivatePlatformEndpoint,
		WandbApiKey:      env.WandbApiKey,
		CloudCredentials: env.cloudCredentials(),
		IsLocal:          env.TrainerImage == "",
	}

	identityProvider, err := auth.NewBasicIdentityProvider(
		db,
		auth.NewAuditLogger(auditLog),
		auth.BasicProviderArgs{
			Secret:        []byte(env.JwtSecret),
			AdminUsername: env.AdminUsername,
			AdminEmail:    env.AdminEmail,
			AdminPassword: env.AdminPassword,
		},
	)
	if err != nil {
		log.Fatalf("error creating basic identity provider: %v", err)
	}

	runBazaar := services.NewRunBazaar(
		db,
		orchestratorClient,
		sharedStorage,
		identityProvider,
		variables,
		[]byte(env.JwtSecret),
	)

	go runBazaar.JobStatusSync(5 * time.Second)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{env.IngressHostname},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Mount("/api/v1", runBazaar.Routes())

	slog.Info("starting server", "port", *port, "code", logging.SYSTEM)
	err = http.ListenAndServe(fmt.Sprintf(":%d", *port), r)
	if err != nil {
		log.Fatalf("listen and serve returned error: %v", err.Error())
	}
	runBazaar.StopJobStatusSync()
}
