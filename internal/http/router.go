package http

import (
	"net/http"

	"libraryapi/internal/usecase"
)

// NewRouter registers every route on a fresh ServeMux.
func NewRouter(store usecase.Store, catalog *usecase.CatalogUsecase, patron *usecase.PatronUsecase, lending *usecase.LendingUsecase) *http.ServeMux {
	books := NewBookHandler(catalog)
	users := NewUserHandler(patron)
	orders := NewOrderHandler(lending)
	health := NewHealthHandler(store)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)

	mux.HandleFunc("POST /books", books.Create)
	mux.HandleFunc("GET /books", books.List)
	mux.HandleFunc("GET /books/id/{id}", books.GetByID)
	mux.HandleFunc("DELETE /books/id/{id}", books.DeleteByID)
	mux.HandleFunc("GET /books/{title}", books.GetByTitle)
	mux.HandleFunc("PUT /books/{title}", books.Update)
	mux.HandleFunc("DELETE /books/{title}", books.DeleteByTitle)

	mux.HandleFunc("POST /users", users.Create)
	mux.HandleFunc("GET /users", users.List)
	mux.HandleFunc("GET /users/id/{id}", users.GetByID)
	mux.HandleFunc("GET /users/{username}", users.GetByUsername)
	mux.HandleFunc("PATCH /users/{username}", users.UpdateBySelf)
	mux.HandleFunc("PATCH /users/{username}/admin", users.UpdateByAdmin)
	mux.HandleFunc("DELETE /users/{username}", users.Delete)

	mux.HandleFunc("POST /orders", orders.Issue)
	mux.HandleFunc("POST /orders/return", orders.Return)
	mux.HandleFunc("GET /orders", orders.List)

	return mux
}
