// Package api provides the HTTP transport used to talk to the movie review
// service.
//
// The client is intentionally thin: it serialises JSON, attaches the stored
// bearer token and classifies failures. It does not refresh tokens, retry,
// batch or rate-limit.
//
// # Usage
//
//	store, _ := credentials.OpenFile(path)
//	client, err := api.NewClient(
//		"http://localhost:8000/api",
//		store,
//		logger,
//		api.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	var user auth.User
//	err = client.Get(ctx, "/movies/auth/profile/", &user)
//
// # Error Handling
//
// A response with a non-2xx status becomes an *APIError carrying the status
// code, the raw body and a message extracted from the REST framework's error
// payload. A request that never produced a response becomes a *NetworkError:
//
//	var apiErr *api.APIError
//	if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
//		// token rejected
//	}
package api
