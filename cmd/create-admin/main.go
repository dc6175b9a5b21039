// Command create-admin provisions an administrator account.
//
//	go run ./cmd/create-admin -email admin@kota.go.id -name "Admin Kota" -nik 3273000000000001
//
// The password is read from ADMIN_PASSWORD.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"lokasi-umkm-backend/internal/config"
	"lokasi-umkm-backend/internal/db"
	"lokasi-umkm-backend/internal/repository"
	"lokasi-umkm-backend/internal/service"
)

func main() {
	email := flag.String("email", "", "admin e-mail")
	name := flag.String("name", "Administrator", "display name")
	nik := flag.String("nik", "", "16 digit NIK")
	flag.Parse()

	password := os.Getenv("ADMIN_PASSWORD")
	if *email == "" || *nik == "" || password == "" {
		flag.Usage()
		log.Fatal("email, nik and ADMIN_PASSWORD are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pg, err := db.New(ctx, cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pg.Close()

	auth := service.AuthService{Users: repository.UserRepository{DB: pg}}
	admin, err := auth.CreateAdmin(ctx, service.RegisterInput{
		Name:     *name,
		Email:    *email,
		Password: password,
		NIK:      *nik,
	})
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}
	fmt.Printf("admin created: id=%d email=%s\n", admin.ID, admin.Email)
}
