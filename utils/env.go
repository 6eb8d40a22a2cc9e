package utils

import (
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func LoadEnv() {
	godotenv.Load()
}

func GenerateUUID() string {
	return uuid.New().String()
}
