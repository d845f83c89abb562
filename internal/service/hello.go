package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// HelloRequest is the body accepted by the hello endpoints.
type HelloRequest struct {
	Name *string `json:"name" validate:"required,min=1,max=10"`
}

// HelloService formats greetings for validated hello requests.
type HelloService struct{}

// NewHelloService creates a new HelloService.
func NewHelloService() *HelloService {
	return &HelloService{}
}

// Greet validates req and returns "Hello <Name>!". Validation failures are
// returned as *domain.ValidationError.
func (s *HelloService) Greet(req HelloRequest) (string, error) {
	trimPtr(req.Name)
	if err := validateStruct(req); err != nil {
		return "", err
	}
	return "Hello " + Capitalize(*req.Name) + "!", nil
}

// Capitalize title-cases the first character of s and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToTitle(r)) + strings.ToLower(s[size:])
}
