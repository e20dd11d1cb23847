// Package content loads the operator-authored business texts used by the
// scripted replies.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	maxOptions     = 3
	maxOptionRunes = 20
)

// Pricing is the price list reply: an image with caption, or the caption alone.
type Pricing struct {
	ImageLink string `json:"imagen"`
	Caption   string `json:"caption"`
}

// BusinessContent is read once at startup and never mutated afterwards.
type BusinessContent struct {
	BusinessName   string   `json:"nombre_negocio,omitempty"`
	WelcomeText    string   `json:"mensaje_bienvenida"`
	ErrorText      string   `json:"mensaje_error"`
	LocationText   string   `json:"respuesta_ubicacion"`
	Pricing        Pricing  `json:"respuesta_precios"`
	MenuOptions    []string `json:"botones_menu,omitempty"`
	ServiceOptions []string `json:"servicios,omitempty"`
	SystemPrompt   string   `json:"prompt_sistema,omitempty"`
	AIFallbackText string   `json:"mensaje_ia_no_disponible,omitempty"`
}

// ErrMissingField is returned when a required key is absent or blank.
var ErrMissingField = errors.New("content: required field missing")

// Fallback is served when the configured content cannot be loaded.
func Fallback() BusinessContent {
	return BusinessContent{
		BusinessName:   "nuestro negocio",
		WelcomeText:    "¡Hola! 👋 ¿En qué podemos ayudarte?",
		ErrorText:      "Lo siento, no entendí tu mensaje. Escribe *menu* para ver las opciones.",
		LocationText:   "Por el momento no tenemos la ubicación disponible. Escríbenos y te ayudamos.",
		Pricing:        Pricing{Caption: "Por el momento no tenemos la lista de precios disponible."},
		MenuOptions:    []string{"💰 Precios", "📍 Ubicación", "📅 Agendar Cita"},
		ServiceOptions: []string{"Consultoría", "Desarrollo Web", "Soporte"},
		AIFallbackText: "Lo siento, en este momento no puedo ayudarte con eso. Escribe *menu* para ver las opciones.",
	}
}

// Parse decodes a content document and fills optional keys from Fallback.
func Parse(data []byte) (BusinessContent, error) {
	var c BusinessContent
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&c); err != nil {
		return BusinessContent{}, fmt.Errorf("content: decode: %w", err)
	}
	missing := make([]string, 0, 4)
	if strings.TrimSpace(c.WelcomeText) == "" {
		missing = append(missing, "mensaje_bienvenida")
	}
	if strings.TrimSpace(c.ErrorText) == "" {
		missing = append(missing, "mensaje_error")
	}
	if strings.TrimSpace(c.LocationText) == "" {
		missing = append(missing, "respuesta_ubicacion")
	}
	if strings.TrimSpace(c.Pricing.Caption) == "" && strings.TrimSpace(c.Pricing.ImageLink) == "" {
		missing = append(missing, "respuesta_precios")
	}
	if len(missing) > 0 {
		return BusinessContent{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return c.withDefaults(), nil
}

func (c BusinessContent) withDefaults() BusinessContent {
	fb := Fallback()
	if strings.TrimSpace(c.BusinessName) == "" {
		c.BusinessName = fb.BusinessName
	}
	if strings.TrimSpace(c.AIFallbackText) == "" {
		c.AIFallbackText = fb.AIFallbackText
	}
	c.MenuOptions = clampOptions(c.MenuOptions, fb.MenuOptions)
	c.ServiceOptions = clampOptions(c.ServiceOptions, fb.ServiceOptions)
	return c
}

// clampOptions enforces the WhatsApp reply-button limits.
func clampOptions(opts, fallback []string) []string {
	out := make([]string, 0, maxOptions)
	for _, o := range opts {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if utf8.RuneCountInString(o) > maxOptionRunes {
			o = string([]rune(o)[:maxOptionRunes])
		}
		out = append(out, o)
		if len(out) == maxOptions {
			break
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

// ObjectGetter is the subset of the S3 client used to fetch content.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads content from a local path or an s3://bucket/key URI.
type Loader struct {
	S3 ObjectGetter
}

// Load returns the parsed content. On any failure it returns Fallback together
// with the error so the caller can log it and keep serving.
func (l Loader) Load(ctx context.Context, source string) (BusinessContent, error) {
	data, err := l.read(ctx, strings.TrimSpace(source))
	if err != nil {
		return Fallback(), err
	}
	c, err := Parse(data)
	if err != nil {
		return Fallback(), err
	}
	return c, nil
}

func (l Loader) read(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, errors.New("content: no source configured")
	}
	if !strings.HasPrefix(source, "s3://") {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("content: read file: %w", err)
		}
		return data, nil
	}

	bucket, key, ok := strings.Cut(strings.TrimPrefix(source, "s3://"), "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("content: invalid s3 uri %q", source)
	}
	if l.S3 == nil {
		return nil, errors.New("content: s3 client not configured")
	}
	out, err := l.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("content: get s3 object: %w", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("content: read s3 object: %w", err)
	}
	return data, nil
}
