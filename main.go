package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/routes"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/services"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	storage.InitializeDB()
	storage.InitializeRedis()
	utils.Codes = utils.NewCodeStore(storage.Redis)

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/google", routes.GoogleLoginOrSignUp)
		user.Post("/apple", routes.AppleLoginOrSignUp)
		user.Post("/forgotpassword", routes.ForgotPassword)
		user.Post("/resetpassword", routes.ResetPassword)
		user.Get("/search", accessTokenVerifierMiddleware, routes.SearchUsers)
		user.Patch("/{id}/pushtoken", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterPushToken)
		user.Patch("/{id}/settings/notifications", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AllowsNotifications)
		user.Patch("/{id}/profile", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.UpdateUserProfile)
		user.Get("/trips/history", accessTokenVerifierMiddleware, routes.GetMyTripHistory)
		user.Delete("/{id}", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.DeleteAccount)
		user.Get("/{id}", accessTokenVerifierMiddleware, routes.GetUser)
	}

	friends := app.Party("/api/friends", accessTokenVerifierMiddleware)
	{
		friends.Get("/", routes.ListFriends)
		friends.Post("/request", routes.SendFriendRequest)
		friends.Post("/request/cancel", routes.CancelFriendRequest)
		friends.Post("/request/accept", routes.AcceptFriendRequest)
		friends.Post("/request/decline", routes.DeclineFriendRequest)
		friends.Post("/remove", routes.RemoveFriend)
		friends.Post("/block", routes.BlockUser)
		friends.Post("/unblock", routes.UnblockUser)
	}

	trip := app.Party("/api/trip")
	{
		trip.Get("/search", routes.SearchTrips)
		trip.Get("/", routes.ListTrips)
		trip.Get("/{id:uint}", routes.GetTrip)
		trip.Post("/", accessTokenVerifierMiddleware, routes.CreateTrip)
		trip.Patch("/{id:uint}", accessTokenVerifierMiddleware, routes.UpdateTrip)
		trip.Delete("/{id:uint}", accessTokenVerifierMiddleware, routes.DeleteTrip)
	}

	groups := app.Party("/api/groups", accessTokenVerifierMiddleware)
	{
		groups.Get("/search", routes.SearchGroups)
		groups.Get("/mine", routes.ListMyGroups)
		groups.Post("/", routes.CreateGroup)
		groups.Get("/{id:uint}", routes.GetGroup)
		groups.Patch("/{id:uint}", routes.UpdateGroup)
		groups.Delete("/{id:uint}", routes.DeleteGroup)
		groups.Get("/{id:uint}/members", routes.GetGroupMembers)
		groups.Get("/{id:uint}/pending", routes.GetGroupPending)
		groups.Get("/{id:uint}/feed", routes.GetGroupFeed)
		groups.Post("/{id:uint}/invite", routes.InviteToGroup)
		groups.Post("/{id:uint}/invite/cancel", routes.CancelInvite)
		groups.Post("/{id:uint}/invite/accept", routes.AcceptInvite)
		groups.Post("/{id:uint}/join", routes.JoinGroup)
		groups.Post("/{id:uint}/join/approve", routes.ApproveJoin)
		groups.Post("/{id:uint}/join/cancel", routes.CancelJoin)
		groups.Post("/{id:uint}/members/remove", routes.RemoveMember)
	}

	post := app.Party("/api/post", accessTokenVerifierMiddleware)
	{
		post.Get("/feed", routes.GetFeed)
		post.Get("/saved", routes.GetSavedPosts)
		post.Post("/", routes.CreatePost)
		post.Get("/{id:uint}", routes.GetPost)
		post.Patch("/{id:uint}", routes.UpdatePost)
		post.Delete("/{id:uint}", routes.DeletePost)
		post.Post("/{id:uint}/like", routes.LikePost)
		post.Post("/{id:uint}/unlike", routes.UnlikePost)
		post.Post("/{id:uint}/save", routes.SavePost)
		post.Post("/{id:uint}/unsave", routes.UnsavePost)
		post.Post("/{id:uint}/share", routes.SharePost)
		post.Post("/{id:uint}/comment", routes.CreateComment)
		post.Delete("/comment/{commentID:uint}", routes.DeleteComment)
		post.Post("/comment/{commentID:uint}/like", routes.LikeComment)
		post.Post("/comment/{commentID:uint}/unlike", routes.UnlikeComment)
	}

	notifications := app.Party("/api/notifications", accessTokenVerifierMiddleware)
	{
		notifications.Get("/", routes.GetNotifications)
		notifications.Get("/unread", routes.GetUnreadCount)
		notifications.Patch("/{id:uint}/read", routes.MarkNotificationRead)
		notifications.Patch("/read-all", routes.MarkAllNotificationsRead)
		notifications.Delete("/{id:uint}", routes.DeleteNotification)
		notifications.Get("/settings", routes.GetNotificationSettings)
		notifications.Put("/settings", routes.UpdateNotificationSettings)
	}

	report := app.Party("/api/report", accessTokenVerifierMiddleware)
	{
		report.Post("/", routes.CreateReport)
	}

	upload := app.Party("/api/upload", accessTokenVerifierMiddleware)
	{
		upload.Post("/image", routes.UploadImage)
		upload.Delete("/image", routes.DeleteUploadedImage)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/users", routes.AdminListUsers)
		admin.Get("/users/{id:uint}", routes.AdminGetUser)
		admin.Patch("/users/{id:uint}/role", routes.AdminChangeRole)
		admin.Delete("/users/{id:uint}", routes.AdminDeleteUser)
		admin.Delete("/groups/{id:uint}", routes.AdminDeleteGroup)
		admin.Get("/reports", routes.ListReports)
		admin.Patch("/reports/{id:uint}", routes.ResolveReport)
		admin.Get("/stats", routes.AdminStats)
		admin.Get("/audit", routes.AdminListAuditLog)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	// Background sweep that moves groups along planned -> active -> completed
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	lifecycle := services.NewLifecycleService()
	go lifecycle.Run(sweepCtx)
	iris.RegisterOnInterrupt(func() {
		cancelSweep()
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
