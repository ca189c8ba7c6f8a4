package appMiddleware

type contextKey string

const UserIDKey contextKey = "userID"
const UserRoleKey contextKey = "userRole"
const ClaimsKey contextKey = "claims"
