package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/safetypro/rumore-server/config"
	"github.com/safetypro/rumore-server/internal/database"
	"github.com/safetypro/rumore-server/internal/repository"
	"github.com/safetypro/rumore-server/internal/service"
)

var (
	list     = flag.Bool("list", false, "List users with data counts")
	page     = flag.Int("page", 1, "Page number for -list")
	pageSize = flag.Int("page-size", 50, "Page size for -list")
	promote  = flag.Int64("promote", 0, "Grant admin to the given user ID")
	demote   = flag.Int64("demote", 0, "Revoke admin from the given user ID")
	remove   = flag.Int64("delete", 0, "Delete the given user and all their data")
	yes      = flag.Bool("yes", false, "Confirm destructive operations")
)

func main() {
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	aziendaRepo := repository.NewAziendaRepository(db)
	espoRepo := repository.NewEsposizioneRepository(db)
	dpiRepo := repository.NewDPIRepository(db)
	docRepo := repository.NewDocumentoRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	adminService := service.NewAdminService(userRepo, aziendaRepo, espoRepo, dpiRepo, docRepo, subRepo)

	switch {
	case *list:
		listUsers(adminService)
	case *promote != 0:
		setAdmin(adminService, *promote, true)
	case *demote != 0:
		setAdmin(adminService, *demote, false)
	case *remove != 0:
		deleteUser(adminService, *remove)
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func listUsers(adminService *service.AdminService) {
	offset := (*page - 1) * *pageSize
	users, total, err := adminService.ListUsers(offset, *pageSize)
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}

	fmt.Printf("%-6s %-35s %-20s %-6s %-8s %-5s %-5s %-5s %-10s\n",
		"ID", "EMAIL", "NOME", "ADMIN", "AZIENDE", "ESPO", "DPI", "DOC", "ABBONAM.")
	fmt.Println(strings.Repeat("-", 110))
	for _, u := range users {
		admin := ""
		if u.IsAdmin {
			admin = "yes"
		}
		fmt.Printf("%-6d %-35s %-20s %-6s %-8d %-5d %-5d %-5d %-10s\n",
			u.ID, u.Email, u.Nome, admin,
			u.AziendeCount, u.EsposizioniCount, u.DPICount, u.DocumentiCount,
			u.SubscriptionStatus)
	}
	fmt.Printf("\nTotal: %d users (page %d, size %d)\n", total, *page, *pageSize)
}

func setAdmin(adminService *service.AdminService, userID int64, isAdmin bool) {
	// actor 0 表示 CLI 操作，不受自我降级限制
	if err := adminService.SetAdmin(0, userID, isAdmin); err != nil {
		log.Fatalf("Failed to update user %d: %v", userID, err)
	}
	if isAdmin {
		log.Printf("✅ User %d is now an admin", userID)
	} else {
		log.Printf("✅ User %d is no longer an admin", userID)
	}
}

func deleteUser(adminService *service.AdminService, userID int64) {
	if !*yes {
		log.Fatalf("Deleting user %d removes all their aziende, valutazioni and documenti. Re-run with -yes to confirm.", userID)
	}
	if err := adminService.DeleteUser(userID); err != nil {
		log.Fatalf("Failed to delete user %d: %v", userID, err)
	}
	log.Printf("✅ User %d deleted", userID)
}
