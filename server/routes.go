package server

const (
	RouteHealthz     = "/healthz"
	RouteLogin       = "/login"
	RouteLoginQR     = "/login/qr/{sessionID}"
	RouteLoginStatus = "/login/status/{sessionID}"
	RouteCheckinRun  = "/checkin/run"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())

	// LOGIN
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.StartLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteLoginQR, ChainMiddleware(s.ChallengeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteLoginStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware()...))

	// CHECK-IN
	s.RegisterRouteHandler("POST "+RouteCheckinRun, ChainMiddleware(s.RunCheckinHandler(), s.APIMiddleware()...))
}
