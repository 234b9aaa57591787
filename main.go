package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"bikerental/app/echoServer"
	adminctrl "bikerental/app/echoServer/controller/admin"
	authctrl "bikerental/app/echoServer/controller/auth"
	bikectrl "bikerental/app/echoServer/controller/bike"
	maintenancectrl "bikerental/app/echoServer/controller/maintenance"
	overviewctrl "bikerental/app/echoServer/controller/overview"
	rentalctrl "bikerental/app/echoServer/controller/rental"
	settingsctrl "bikerental/app/echoServer/controller/settings"
	"bikerental/app/echoServer/validation"
	"bikerental/config"
	"bikerental/migrations"
	bikerepo "bikerental/repository/bike"
	hotelrepo "bikerental/repository/hotel"
	rentalrepo "bikerental/repository/rental"
	settingsrepo "bikerental/repository/settings"
	signaturerepo "bikerental/repository/signature"
	adminsvc "bikerental/service/admin"
	authsvc "bikerental/service/auth"
	bikesvc "bikerental/service/bike"
	maintenancesvc "bikerental/service/maintenance"
	overviewsvc "bikerental/service/overview"
	rentalsvc "bikerental/service/rental"
	settingssvc "bikerental/service/settings"
	signaturesvc "bikerental/service/signature"
	"bikerental/util/database"
	"bikerental/util/hash"
)

func main() {

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Apply(db.DB); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	// repos
	hr := hotelrepo.New(db)
	br := bikerepo.New(db)
	rr := rentalrepo.New(db)
	sigr := signaturerepo.New(db)
	setr := settingsrepo.New(db)

	if err := seedAdmin(ctx, hr, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	// services
	as := authsvc.New(hr, cfg.JWTSecret, cfg.JWTTTLHours)
	sets := settingssvc.New(setr)
	sigs := signaturesvc.New(sigr)
	bs := bikesvc.New(db, br)
	rs := rentalsvc.New(db, rr, br, sigr, sets)
	contract := rentalsvc.NewContractRenderer(rs, sigs, sets)
	ovs := overviewsvc.New(br, rr, sets)
	ms := maintenancesvc.New(bs)
	adm := adminsvc.New(db, hr, br)

	// controllers
	v := validation.New()
	authC := &authctrl.Controller{Svc: as, V: v.Raw(), Log: log}
	bikeC := &bikectrl.Controller{Svc: bs, V: v.Raw(), Log: log}
	rentalC := &rentalctrl.Controller{Svc: rs, Contract: contract, V: v.Raw(), Log: log}
	overviewC := &overviewctrl.Controller{Svc: ovs, Log: log}
	settingsC := &settingsctrl.Controller{Svc: sets, Log: log}
	maintenanceC := &maintenancectrl.Controller{Svc: ms, Log: log}
	adminC := &adminctrl.Controller{Svc: adm, V: v.Raw(), Log: log}

	// background sweeper
	sweeper := rentalsvc.NewSweeper(rr, time.Duration(cfg.SweepInterval)*time.Second, log)
	go sweeper.Run(ctx)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = v
	echoServer.RegisterMiddlewares(e, log)

	echoServer.Register(e, echoServer.C{
		Auth:        authC,
		Bike:        bikeC,
		Rental:      rentalC,
		Overview:    overviewC,
		Settings:    settingsC,
		Maintenance: maintenanceC,
		Admin:       adminC,

		JWTSecret: cfg.JWTSecret,
	})

	log.Info("starting server", "port", cfg.Port, "env", cfg.Env)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

func seedAdmin(ctx context.Context, hr hotelrepo.Repo, cfg config.App) error {
	pwHash, err := hash.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	return hr.EnsureAdmin(ctx, cfg.AdminCode, "Administrator", pwHash)
}
