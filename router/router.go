package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-tableorder/controllers"
	"github.com/yeremiapane/restaurant-tableorder/middlewares"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"github.com/yeremiapane/restaurant-tableorder/services"
)

// Deps are the collaborators the HTTP surface is built on.
type Deps struct {
	Sessions *services.SessionService
	Orders   *services.OrderService
	Payments *services.PaymentService
	Tables   *services.TableService
	Menu     *services.MenuService
	Auth     *services.AuthService
	Users    *services.UserService
	Hub      *realtime.Hub

	CORSOrigin string
	PublicURL  string
	RateRPS    float64
	RateBurst  int
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())

	sessionCtrl := controllers.NewSessionController(d.Sessions)
	orderCtrl := controllers.NewOrderController(d.Orders)
	paymentCtrl := controllers.NewPaymentController(d.Payments)
	tableCtrl := controllers.NewTableController(d.Tables, d.Sessions, d.PublicURL)
	menuCtrl := controllers.NewMenuController(d.Menu)
	authCtrl := controllers.NewAuthController(d.Auth)
	userCtrl := controllers.NewUserController(d.Users)
	realtimeCtrl := controllers.NewRealtimeController(d.Hub, d.Tables)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Realtime hub handshake: role, tableId, sessionId, token
	r.GET("/ws", middlewares.WebSocketHandshake(), realtimeCtrl.ServeWS)

	// ----------------------------------------------------------------
	//                 CUSTOMER ROUTES (QR, no login)
	// ----------------------------------------------------------------
	limiter := middlewares.NewRateLimiter(d.RateRPS, d.RateBurst)
	public := r.Group("/api")
	public.Use(limiter.RateLimit())
	{
		public.POST("/auth/login", authCtrl.Login)
		public.GET("/scan/:token", tableCtrl.ScanTable)
		public.GET("/menu/categories", menuCtrl.GetCategories)
		public.GET("/menu/categories/:category_id", menuCtrl.GetCategory)
		public.GET("/menu/products", menuCtrl.GetProducts)
		public.GET("/menu/products/:product_id", menuCtrl.GetProduct)

		public.POST("/tables/:table_id/session", sessionCtrl.OpenOrJoin)
		public.POST("/tables/:table_id/call-staff", tableCtrl.CallStaff)

		public.GET("/sessions/:session_id", sessionCtrl.GetSession)
		public.GET("/sessions/:session_id/orders", orderCtrl.ListSessionOrders)
		public.POST("/sessions/:session_id/orders", orderCtrl.PlaceOrder)
		public.GET("/sessions/:session_id/payments", paymentCtrl.ListPayments)
		public.POST("/sessions/:session_id/payments", paymentCtrl.RequestPayment)
	}

	// Any signed-in account
	account := r.Group("/api/auth")
	account.Use(middlewares.AuthMiddleware())
	{
		account.GET("/me", authCtrl.Me)
	}

	// ----------------------------------------------------------------
	//                      STAFF ROUTES
	// ----------------------------------------------------------------
	staff := r.Group("/api/staff")
	staff.Use(middlewares.AuthMiddleware(), middlewares.RequireRole(models.RoleStaff))
	{
		staff.GET("/tables", tableCtrl.GetAllTables)
		staff.GET("/tables/:table_id", tableCtrl.GetTable)
		staff.GET("/tables/:table_id/qrcode", tableCtrl.QRCode)
		staff.POST("/tables/:table_id/session", sessionCtrl.OpenOrJoin)
		staff.POST("/tables/:table_id/resolve-help", tableCtrl.ResolveHelp)

		staff.GET("/sessions", sessionCtrl.ListSessions)
		staff.GET("/sessions/:session_id", sessionCtrl.GetSession)
		staff.PATCH("/sessions/:session_id/status", sessionCtrl.UpdateStatus)
		staff.POST("/sessions/:session_id/close", sessionCtrl.CloseSession)
		staff.POST("/sessions/:session_id/orders", orderCtrl.PlaceOrder)
		staff.POST("/sessions/:session_id/payments", paymentCtrl.RequestPayment)

		staff.GET("/orders", orderCtrl.ListOrders)
		staff.GET("/orders/:order_id", orderCtrl.GetOrder)
		staff.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
		staff.PATCH("/orders/:order_id/items/:item_id/status", orderCtrl.UpdateItemStatus)

		staff.GET("/payments/:payment_id", paymentCtrl.GetPayment)
		staff.POST("/payments/:payment_id/confirm", paymentCtrl.ConfirmPayment)

		staff.PATCH("/menu/products/:product_id/availability", menuCtrl.SetAvailability)
	}

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	admin := r.Group("/api/admin")
	admin.Use(middlewares.AuthMiddleware(), middlewares.RequireRole(models.RoleAdmin))
	{
		admin.POST("/tables", tableCtrl.CreateTable)
		admin.PUT("/tables/:table_id", tableCtrl.UpdateTable)
		admin.DELETE("/tables/:table_id", tableCtrl.DeleteTable)

		admin.POST("/menu/categories", menuCtrl.CreateCategory)
		admin.PUT("/menu/categories/:category_id", menuCtrl.UpdateCategory)
		admin.DELETE("/menu/categories/:category_id", menuCtrl.DeleteCategory)
		admin.POST("/menu/products", menuCtrl.CreateProduct)
		admin.PUT("/menu/products/:product_id", menuCtrl.UpdateProduct)
		admin.DELETE("/menu/products/:product_id", menuCtrl.DeleteProduct)

		admin.GET("/users", userCtrl.GetAllUsers)
		admin.POST("/users", userCtrl.CreateUser)
		admin.GET("/users/:user_id", userCtrl.GetUser)
		admin.PUT("/users/:user_id", userCtrl.UpdateUser)
		admin.DELETE("/users/:user_id", userCtrl.DeleteUser)

		admin.GET("/realtime/clients", realtimeCtrl.Clients)
	}

	return r
}
