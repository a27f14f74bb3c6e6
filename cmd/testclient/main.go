package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dasmlab/receitas/pkg/rpc"
)

var (
	serverAddr = flag.String("addr", "localhost:50051", "gRPC server address")
	sourceLang = flag.String("source", "en", "Source language code (e.g., en, pt, auto)")
	targetLang = flag.String("target", "pt", "Target language code (e.g., en, pt)")
	textFile   = flag.String("file", "", "Path to text file to translate")
	text       = flag.String("text", "", "Text to translate (if file not provided)")
	search     = flag.String("search", "", "Search recipes with a Portuguese term instead of translating")
	mealID     = flag.String("meal", "", "Fetch one translated recipe by TheMealDB id")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	opts := append(rpc.DialOptions(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	conn, err := grpc.NewClient(*serverAddr, opts...)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to server")
	}
	defer conn.Close()

	client := rpc.NewClient(conn)

	switch {
	case *search != "":
		runSearch(ctx, logger, client)
	case *mealID != "":
		runRecipe(ctx, logger, client)
	default:
		runTranslate(ctx, logger, client)
	}
}

func runSearch(ctx context.Context, logger *logrus.Logger, client *rpc.Client) {
	resp, err := client.SearchRecipes(ctx, &rpc.SearchRecipesRequest{Query: *search})
	if err != nil {
		logger.WithError(err).Fatal("Search failed")
	}

	fmt.Printf("%d receitas para %q\n", len(resp.Recipes), *search)
	for _, r := range resp.Recipes {
		fmt.Printf("  %-8s %s (%s, %s)\n", r.ID, r.Name, r.Category, r.Area)
	}
}

func runRecipe(ctx context.Context, logger *logrus.Logger, client *rpc.Client) {
	resp, err := client.GetRecipe(ctx, &rpc.GetRecipeRequest{MealID: *mealID})
	if err != nil {
		logger.WithError(err).Fatal("Recipe lookup failed")
	}

	r := resp.Recipe
	separator := strings.Repeat("=", 80)
	fmt.Println(separator)
	fmt.Printf("%s (%s)\n", r.Name, r.OriginalName)
	fmt.Println(separator)
	fmt.Printf("Categoria: %s\nOrigem: %s\n\nIngredientes:\n", r.Category, r.Area)
	for _, ing := range r.Ingredients {
		fmt.Printf("  - %s\n", ing)
	}
	fmt.Println("\nModo de preparo:")
	for i, step := range r.InstructionSteps {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
	if r.UntranslatedUnits > 0 {
		logger.WithField("untranslated_units", r.UntranslatedUnits).Warn("Some text was kept in English")
	}
}

func runTranslate(ctx context.Context, logger *logrus.Logger, client *rpc.Client) {
	var textToTranslate string
	if *textFile != "" {
		data, err := os.ReadFile(*textFile)
		if err != nil {
			logger.WithError(err).Fatalf("Failed to read file: %s", *textFile)
		}
		textToTranslate = string(data)
	} else if *text != "" {
		textToTranslate = *text
	} else {
		logger.Fatal("One of -file, -text, -search or -meal must be provided")
	}

	logger.WithFields(logrus.Fields{
		"server":      *serverAddr,
		"source_lang": *sourceLang,
		"target_lang": *targetLang,
		"text_length": len(textToTranslate),
	}).Info("Translating text...")

	startTime := time.Now()
	resp, err := client.Translate(ctx, &rpc.TranslateRequest{
		Text:           textToTranslate,
		SourceLanguage: *sourceLang,
		TargetLanguage: *targetLang,
	})
	if err != nil {
		logger.WithError(err).Fatal("Translation failed")
	}

	separator := strings.Repeat("=", 80)
	dashLine := strings.Repeat("-", 80)

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("TRANSLATION RESULTS")
	fmt.Println(separator)
	fmt.Printf("\nSource Language: %s\n", *sourceLang)
	fmt.Printf("Target Language: %s\n", *targetLang)
	fmt.Printf("Units: %d (fallback %d, skipped %d)\n", resp.Units, resp.Fallbacks, resp.Skipped)
	fmt.Printf("Translation Time: %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Println("ORIGINAL TEXT:")
	fmt.Println(dashLine)
	fmt.Println(textToTranslate)
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Println("TRANSLATED TEXT:")
	fmt.Println(dashLine)
	fmt.Println(resp.TranslatedText)
	fmt.Println()
	fmt.Println(separator)
}
