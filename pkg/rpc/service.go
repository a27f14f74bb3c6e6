package rpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dasmlab/receitas/pkg/chunker"
	"github.com/dasmlab/receitas/pkg/mealdb"
	"github.com/dasmlab/receitas/pkg/service"
	"github.com/dasmlab/receitas/pkg/translate"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "receitas.v1.RecipeService"

// TranslateRequest asks for a chunked translation.
type TranslateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// TranslateResponse carries the translation and its unit counts.
type TranslateResponse struct {
	TranslatedText string `json:"translated_text"`
	Units          int    `json:"units"`
	Fallbacks      int    `json:"fallbacks"`
	Skipped        int    `json:"skipped"`
}

// SearchRecipesRequest is a Portuguese search term.
type SearchRecipesRequest struct {
	Query string `json:"query"`
}

// SearchRecipesResponse lists translated hits.
type SearchRecipesResponse struct {
	Recipes []service.RecipeSummary `json:"recipes"`
}

// GetRecipeRequest selects a meal by id.
type GetRecipeRequest struct {
	MealID string `json:"meal_id"`
}

// GetRecipeResponse is the translated recipe.
type GetRecipeResponse struct {
	Recipe *service.RecipeDetail `json:"recipe"`
}

// RecipeServiceServer is the server API for the recipe service.
type RecipeServiceServer interface {
	Translate(context.Context, *TranslateRequest) (*TranslateResponse, error)
	SearchRecipes(context.Context, *SearchRecipesRequest) (*SearchRecipesResponse, error)
	GetRecipe(context.Context, *GetRecipeRequest) (*GetRecipeResponse, error)
}

// RecipeService implements RecipeServiceServer.
type RecipeService struct {
	Translator *translate.ChunkedTranslator
	Recipes    *service.RecipeService
	Logger     *logrus.Logger
}

// NewRecipeService creates a new gRPC recipe service.
func NewRecipeService(translator *translate.ChunkedTranslator, recipes *service.RecipeService, logger *logrus.Logger) *RecipeService {
	if logger == nil {
		logger = logrus.New()
	}
	return &RecipeService{
		Translator: translator,
		Recipes:    recipes,
		Logger:     logger,
	}
}

// Translate runs the chunked translator. It only fails on invalid arguments.
func (s *RecipeService) Translate(ctx context.Context, req *TranslateRequest) (*TranslateResponse, error) {
	s.Logger.WithFields(logrus.Fields{
		"source_lang": req.SourceLanguage,
		"target_lang": req.TargetLanguage,
		"text_length": chunker.Len(req.Text),
	}).Debug("[gRPC] Translate request received")

	if req.TargetLanguage == "" {
		return nil, status.Error(codes.InvalidArgument, "target_language is required")
	}

	startTime := time.Now()
	res := s.Translator.TranslateUnits(ctx, req.Text, req.SourceLanguage, req.TargetLanguage, nil)

	s.Logger.WithFields(logrus.Fields{
		"units":       len(res.Outcomes),
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("[gRPC] Translate completed")

	return &TranslateResponse{
		TranslatedText: res.String(),
		Units:          len(res.Outcomes),
		Fallbacks:      res.Count(translate.Fallback),
		Skipped:        res.Count(translate.Skipped),
	}, nil
}

// SearchRecipes searches recipes in Portuguese.
func (s *RecipeService) SearchRecipes(ctx context.Context, req *SearchRecipesRequest) (*SearchRecipesResponse, error) {
	recipes, err := s.Recipes.Search(ctx, req.Query)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SearchRecipesResponse{Recipes: recipes}, nil
}

// GetRecipe returns one translated recipe.
func (s *RecipeService) GetRecipe(ctx context.Context, req *GetRecipeRequest) (*GetRecipeResponse, error) {
	if strings.TrimSpace(req.MealID) == "" {
		return nil, status.Error(codes.InvalidArgument, "meal_id is required")
	}
	detail, err := s.Recipes.Detail(ctx, req.MealID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetRecipeResponse{Recipe: detail}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyQuery):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, mealdb.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

// RegisterRecipeServiceServer registers srv on s.
func RegisterRecipeServiceServer(s grpc.ServiceRegistrar, srv RecipeServiceServer) {
	s.RegisterService(&RecipeServiceDesc, srv)
}

func translateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TranslateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecipeServiceServer).Translate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Translate"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecipeServiceServer).Translate(ctx, req.(*TranslateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func searchRecipesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SearchRecipesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecipeServiceServer).SearchRecipes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/SearchRecipes"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecipeServiceServer).SearchRecipes(ctx, req.(*SearchRecipesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getRecipeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetRecipeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecipeServiceServer).GetRecipe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetRecipe"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecipeServiceServer).GetRecipe(ctx, req.(*GetRecipeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RecipeServiceDesc describes the service for grpc.Server.RegisterService.
var RecipeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecipeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Translate", Handler: translateHandler},
		{MethodName: "SearchRecipes", Handler: searchRecipesHandler},
		{MethodName: "GetRecipe", Handler: getRecipeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "receitas/v1/recipe_service",
}
