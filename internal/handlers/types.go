package handlers

// ShortenRequest is the request body for creating a short link.
type ShortenRequest struct {
	Body struct {
		URL string `doc:"The URL to shorten" example:"https://example.com/very/long/path" json:"url"`
	}
}

// ShortenResponse is the response for a successfully created short link.
type ShortenResponse struct {
	Status int
	Body   struct {
		Code        string `doc:"The short code"              example:"Ab3xK9"                             json:"code"`
		ShortURL    string `doc:"The full short URL"          example:"https://s8l.xyz/Ab3xK9"             json:"shortUrl"`
		OriginalURL string `doc:"The normalized original URL" example:"https://example.com/very/long/path" json:"originalUrl"`
		Title       string `doc:"Page title, when available"  example:"Example Domain"                     json:"title,omitempty"`
	}
}

// RedirectRequest is the request for redirecting a short link.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"Ab3xK9" path:"code"`
}

// RedirectResponse issues the redirect to the original URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `doc:"The original URL" header:"Location"`
	}
}

// QRCodeRequest is the request for a short link's QR code image.
type QRCodeRequest struct {
	Code string `doc:"The short code"                       example:"Ab3xK9" path:"code"`
	Size string `doc:"Image size: small, medium, or large"  enum:"small,medium,large" query:"size" required:"false"`
}

// QRCodeResponse carries the PNG image.
type QRCodeResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}
