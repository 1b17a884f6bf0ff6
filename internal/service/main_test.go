package service

import (
	"os"
	"testing"

	"github.com/avtoscan/reports-backend/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init("error", "test")
	os.Exit(m.Run())
}
