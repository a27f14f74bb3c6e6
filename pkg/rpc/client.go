package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a typed client for RecipeService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection. The connection must use the JSON codec,
// see DialOptions.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// DialOptions returns the call options every connection to the service needs.
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
}

// Translate calls RecipeService.Translate.
func (c *Client) Translate(ctx context.Context, in *TranslateRequest, opts ...grpc.CallOption) (*TranslateResponse, error) {
	out := new(TranslateResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Translate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchRecipes calls RecipeService.SearchRecipes.
func (c *Client) SearchRecipes(ctx context.Context, in *SearchRecipesRequest, opts ...grpc.CallOption) (*SearchRecipesResponse, error) {
	out := new(SearchRecipesResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/SearchRecipes", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRecipe calls RecipeService.GetRecipe.
func (c *Client) GetRecipe(ctx context.Context, in *GetRecipeRequest, opts ...grpc.CallOption) (*GetRecipeResponse, error) {
	out := new(GetRecipeResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetRecipe", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
