package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Market Simulation API
// @version         0.1.0
// @description     Turn-based market game: markets, traders, per-round offers and settlement.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
