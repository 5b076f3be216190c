package routes

import (
	"commerce-api/controllers"
	"commerce-api/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers groups everything the router mounts.
type Controllers struct {
	Auth      *controllers.AuthController
	Address   *controllers.AddressController
	Product   *controllers.ProductController
	Category  *controllers.CategoryController
	Cart      *controllers.CartController
	Order     *controllers.OrderController
	Payment   *controllers.PaymentController
	Wishlist  *controllers.WishlistController
	Search    *controllers.SearchController
	Analytics *controllers.AnalyticsController
	Review    *controllers.ReviewController
	WSHandler gin.HandlerFunc
}

// Register mounts every endpoint under /api. Protected groups run the auth
// middleware; admin groups additionally require the admin role.
func Register(r *gin.Engine, tokens *middleware.TokenService, c Controllers) {
	api := r.Group("/api")

	// Public
	api.POST("/auth/register", c.Auth.Register)
	api.POST("/auth/login", c.Auth.Login)

	api.GET("/products", c.Product.List)
	api.GET("/products/:id", c.Product.Get)
	api.GET("/products/:id/reviews", c.Review.ListForProduct)
	api.GET("/categories", c.Category.List)

	api.GET("/search", c.Search.Search)
	api.GET("/search/suggestions", c.Search.Suggestions)
	api.GET("/search/popular", c.Search.Popular)
	api.POST("/search/track", c.Search.Track)

	api.POST("/payments/webhook", c.Payment.Webhook)
	api.GET("/payments/methods", c.Payment.Methods)

	// Authenticated
	auth := api.Group("", middleware.AuthRequired(tokens))
	{
		auth.GET("/auth/me", c.Auth.Me)

		auth.GET("/addresses", c.Address.List)
		auth.POST("/addresses", c.Address.Create)
		auth.PUT("/addresses/:id", c.Address.Update)
		auth.DELETE("/addresses/:id", c.Address.Delete)

		auth.GET("/cart", c.Cart.Get)
		auth.POST("/cart/items", c.Cart.AddItem)
		auth.PUT("/cart/items/:id", c.Cart.UpdateItem)
		auth.DELETE("/cart/items/:id", c.Cart.RemoveItem)
		auth.DELETE("/cart", c.Cart.Clear)
		auth.POST("/cart/items/:id/move-to-wishlist", c.Cart.MoveToWishlist)

		auth.POST("/orders", c.Order.Create)
		auth.POST("/orders/checkout", c.Order.Checkout)
		auth.GET("/orders", c.Order.Mine)
		auth.GET("/orders/:id", c.Order.Get)

		auth.POST("/payments/intent", c.Payment.CreateIntent)
		auth.POST("/payments/confirm", c.Payment.Confirm)

		auth.GET("/wishlist", c.Wishlist.List)
		auth.POST("/wishlist/:productId", c.Wishlist.Add)
		auth.DELETE("/wishlist/:productId", c.Wishlist.Remove)
		auth.POST("/wishlist/:productId/move-to-cart", c.Wishlist.MoveToCart)

		auth.POST("/products/:id/reviews", c.Review.Create)
		auth.DELETE("/reviews/:reviewId", c.Review.Delete)
	}

	// Admin
	admin := api.Group("/admin", middleware.AuthRequired(tokens), middleware.AdminOnly())
	{
		admin.POST("/products", c.Product.Create)
		admin.PUT("/products/:id", c.Product.Update)
		admin.DELETE("/products/:id", c.Product.Delete)

		admin.POST("/categories", c.Category.Create)
		admin.PUT("/categories/:id", c.Category.Update)
		admin.DELETE("/categories/:id", c.Category.Delete)

		admin.GET("/orders", c.Order.List)
		admin.PUT("/orders/:id/status", c.Order.UpdateStatus)

		admin.POST("/payments/refund", c.Payment.Refund)

		admin.GET("/analytics/dashboard", c.Analytics.Dashboard)
		admin.GET("/analytics/sales", c.Analytics.Sales)
		admin.GET("/analytics/users", c.Analytics.Users)
		admin.GET("/analytics/products", c.Analytics.Products)
		admin.GET("/analytics/export", c.Analytics.Export)
	}

	if c.WSHandler != nil {
		r.GET("/ws/analytics", c.WSHandler)
	}
}
