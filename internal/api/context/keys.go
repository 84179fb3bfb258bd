package context

type contextKey string

const (
	// Params carries httprouter params through the handler chain.
	Params contextKey = "params"
	// CurrentUser carries the authenticated *models.User set by the auth
	// middleware.
	CurrentUser contextKey = "current_user"
)
