package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/config"
	"soofia-clockbook/app/database"
	"soofia-clockbook/app/models"
	"soofia-clockbook/app/routes/auth"
)

func main() {
	name := flag.String("name", "", "teacher first name")
	surname := flag.String("surname", "", "teacher surname")
	subject := flag.String("subject", "", "subject taught (optional)")
	token := flag.Bool("admin-token", false, "print a 24h admin token instead of adding a teacher")
	flag.Parse()

	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel)

	if *token {
		auth.SetSecret(cfg.JWTSecret)
		t, err := auth.GenerateJWT("cli-admin", "", "", "", []string{models.RoleAdmin})
		if err != nil {
			fmt.Printf("Error generating token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(t)
		return
	}

	// Initialize database connection
	db, err := config.OpenDB(cfg.DB)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	roster := attendance.NewTeachers(database.NewPostgresStore(db))
	teacher, err := roster.Create(ctx, *name, *surname, subject)
	if err != nil {
		fmt.Printf("Error creating teacher: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Teacher created successfully: %s (%s)\n", teacher.DisplayName(), teacher.ID)
}
