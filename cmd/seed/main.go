package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"content-studio/internal/config"
	"content-studio/internal/domain/model"
	pg "content-studio/internal/infra/db/postgres"
	"content-studio/internal/infra/web"
)

// seed inserts a sample generation config for an owner and prints a bearer
// token for that owner, so the generate route can be tried with configId.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	owner := flag.String("owner", "demo-owner", "owner id to seed and mint a token for")
	devMode := flag.Bool("dev", false, "developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	repo := pg.NewGenerationConfigRepo(pool)
	gc, err := model.NewGenerationConfig(*owner, "Sample brand", model.GenerationInput{
		Company:  "Bean & Leaf Roasters",
		Audience: "home baristas",
		Tone:     "friendly, practical",
		Language: "English",
	})
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := repo.Save(ctx, gc); err != nil {
		log.Fatalf("save config: %v", err)
	}

	token, err := web.NewAuthManager(cfg.Auth.Secret, cfg.Auth.TTL).Mint(*owner)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}

	fmt.Printf("owner:     %s\n", *owner)
	fmt.Printf("config id: %s\n", gc.ID)
	fmt.Printf("token:     %s\n\n", token)
	fmt.Printf("curl -N -H 'Authorization: Bearer %s' -H 'Content-Type: application/json' \\\n", token)
	fmt.Printf("  -d '{\"keyword\":\"pour over\",\"title\":\"Pour over basics\",\"configId\":\"%s\"}' \\\n", gc.ID)
	fmt.Printf("  http://localhost:%d/api/v1/generate/article\n", cfg.Server.Port)
}
