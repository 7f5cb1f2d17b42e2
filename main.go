package main

import (
	"kshetranetra/aoi"
	"kshetranetra/change"
	"kshetranetra/config"
	"kshetranetra/email"
	"kshetranetra/geocode"
	"kshetranetra/handlers"
	"kshetranetra/imagery"
	"kshetranetra/report"
	"kshetranetra/service"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	EndPointHealth      = "/health"
	EndPointSearchAOI   = "/aoi/search"
	EndPointDrawAOI     = "/aoi/draw"
	EndPointUploadImage = "/images/:slot"
	EndPointDetect      = "/detect"
	EndPointReport      = "/report"
	EndPointEmailReport = "/report/email"
)

func main() {
	// Load .env if present; real deployments inject the environment
	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	cfg := config.Load()

	log.Info("Starting the KshetraNetra backend...")

	geocoder := geocode.NewClient(cfg.NominatimURL, cfg.GeocodeTimeout)
	selector := aoi.NewSelector(geocoder)

	var provider imagery.Provider
	switch cfg.ImageryProvider {
	case "remote":
		if cfg.RemoteBaseURL == "" {
			log.Fatal("IMAGERY_PROVIDER=remote requires REMOTE_IMAGERY_URL")
		}
		provider = imagery.NewRemoteProvider(cfg.RemoteBaseURL, cfg.RemoteUser, cfg.RemotePassword, cfg.RemoteTimeout)
	case "upload":
		// built per run from the session's upload slots
		provider = nil
	case "demo":
		provider = imagery.NewDemoProvider(cfg.AssetsDir)
	default:
		log.Warnf("Unknown imagery provider %q, using demo", cfg.ImageryProvider)
		cfg.ImageryProvider = "demo"
		provider = imagery.NewDemoProvider(cfg.AssetsDir)
	}

	renderer := change.FromConfig(cfg.ChangeRenderer, cfg.AssetsDir)
	builder := report.NewBuilder(cfg.UnicodeFontPath)

	var sender email.Sender
	switch cfg.MailProvider {
	case "sendgrid":
		sender = email.NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridFromName, cfg.SendGridFromEmail)
	default:
		sender = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPSender, cfg.SMTPPassword)
	}

	pipeline := service.NewPipeline(cfg, selector, provider, renderer, builder, sender)
	pipelineHandler := handlers.NewPipelineHandler(pipeline)

	router := gin.Default()
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-Session-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Session-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET(EndPointHealth, pipelineHandler.HealthCheck)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST(EndPointSearchAOI, pipelineHandler.SearchAOI)
		apiV1.POST(EndPointDrawAOI, pipelineHandler.DrawAOI)
		apiV1.POST(EndPointUploadImage, pipelineHandler.UploadImage)
		apiV1.POST(EndPointDetect, pipelineHandler.RunDetection)
		apiV1.GET(EndPointReport, pipelineHandler.DownloadReport)
		apiV1.POST(EndPointEmailReport, pipelineHandler.EmailReport)
	}

	log.Infof("KshetraNetra backend starting on port %s (imagery=%s, renderer=%s, mail=%s)",
		cfg.Port, cfg.ImageryProvider, cfg.ChangeRenderer, cfg.MailProvider)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
