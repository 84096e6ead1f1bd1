package handlers

import (
	"log"
	"sync"

	"github.com/krishirakshak/agri-advisor-backend/internal/database"
	"github.com/krishirakshak/agri-advisor-backend/internal/services"
	"github.com/krishirakshak/agri-advisor-backend/internal/store"
)

// Shared service singletons, built lazily after database.Connect.
var (
	initOnce sync.Once

	conversationStore *store.Conversations
	messageStore      *store.Messages
	aiLogStore        *store.AILogs
	catalogStore      *store.Catalog

	aiService      *services.AIService
	weatherService *services.WeatherService
	retriever      *services.Retriever
	orchestrator   *services.Orchestrator
)

// Init builds the shared stores and services. Call once after the database
// connection is up.
func Init() {
	initOnce.Do(func() {
		conversationStore = store.NewConversations(database.GetCollection("chat_conversations"))
		messageStore = store.NewMessages(database.GetCollection("chat_messages"))
		aiLogStore = store.NewAILogs(database.GetCollection("ai_logs"))
		catalogStore = store.NewCatalog(
			database.GetCollection("crops"),
			database.GetCollection("pests"),
			database.GetCollection("advisories"),
		)

		retriever = services.NewRetriever(catalogStore)

		var err error
		aiService, err = services.NewAIService()
		if err != nil {
			log.Printf("AI service unavailable: %v", err)
		}

		weatherService, err = services.NewWeatherService()
		if err != nil {
			log.Printf("Weather service unavailable: %v", err)
		}

		if aiService != nil {
			orchestrator = services.NewOrchestrator(conversationStore, messageStore, aiLogStore, aiService, retriever)
		}
	})
}
