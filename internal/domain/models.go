package domain

// Models lists the persisted entities in migration order.
func Models() []any {
	return []any{&User{}, &RefreshToken{}, &Post{}, &Product{}}
}
