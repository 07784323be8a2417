// internal/app/request.go
package app

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/rovshanmuradov/token-launcher/internal/token"
)

// LoadRequest читает описание токена из JSON/YAML файла.
func LoadRequest(path string) (token.Request, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return token.Request{}, fmt.Errorf("read request error: %w", err)
	}

	var req token.Request
	if err := v.Unmarshal(&req); err != nil {
		return token.Request{}, fmt.Errorf("unmarshal request error: %w", err)
	}
	return req.Normalize(), nil
}
