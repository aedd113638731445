package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
)

type quantityBody struct {
	MaterialID string          `json:"material_id" validate:"required,uuid"`
	Quantity   decimal.Decimal `json:"quantity" validate:"decimal_gt0"`
}

func TestDecodeJSONBodyValidatesDecimals(t *testing.T) {
	ok := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"material_id":"0b4d2b1c-61e3-4a38-a4ef-6f4f6a8f5a10","quantity":"2.5"}`))
	var body quantityBody
	require.NoError(t, DecodeJSONBody(ok, &body))
	assert.True(t, decimal.RequireFromString("2.5").Equal(body.Quantity))

	bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"material_id":"nope","quantity":0}`))
	err := DecodeJSONBody(bad, &quantityBody{})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	details, _ := pkgerrors.As(err).Details().(map[string]string)
	assert.Equal(t, "must be a valid uuid", details["material_id"])
	assert.Equal(t, "must be greater than zero", details["quantity"])

	unknown := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"extra":true}`))
	assert.True(t, pkgerrors.Is(DecodeJSONBody(unknown, &quantityBody{}), pkgerrors.CodeValidation))
}

func TestQueryParsers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=10&surplus=true&min=1.5&id=nope", nil)

	limit, err := ParseQueryInt(r, "limit", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, limit)

	flag, err := ParseQueryBool(r, "surplus")
	require.NoError(t, err)
	require.NotNil(t, flag)
	assert.True(t, *flag)

	min, err := ParseQueryDecimal(r, "min")
	require.NoError(t, err)
	assert.Equal(t, "1.5", min.String())

	_, err = ParseQueryUUID(r, "id")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	missing, err := ParseQueryUUID(r, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSanitizeOptional(t *testing.T) {
	blank := "   "
	assert.Nil(t, SanitizeOptional(&blank, 10))
	long := "  abcdefghijkl "
	assert.Equal(t, "abcdefghij", *SanitizeOptional(&long, 10))
	assert.Nil(t, SanitizeOptional(nil, 10))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "steel\tbeam", SanitizeString("  steel\x00\tbeam\x1b ", 0))
	assert.Equal(t, "ñañ", SanitizeString("ñañaña", 3))
	assert.Equal(t, "two", SanitizeString("two words", 4))
}

func TestParseQueryIntBounds(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=500&page=x", nil)

	_, err := ParseQueryInt(r, "limit", 20, 1, 100)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	details, _ := pkgerrors.As(err).Details().(map[string]any)
	assert.Equal(t, 100, details["max"])

	_, err = ParseQueryInt(r, "page", 1, 1, 10)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	def, err := ParseQueryInt(r, "absent", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, def)
}

func TestDecodeJSONBodyRejectsMalformedEnvelopes(t *testing.T) {
	cases := map[string]string{
		"empty":     ``,
		"trailing":  `{"material_id":"0b4d2b1c-61e3-4a38-a4ef-6f4f6a8f5a10","quantity":"1"} {}`,
		"too large": `{"material_id":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			err := DecodeJSONBody(r, &quantityBody{})
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
		})
	}
}

type noteBody struct {
	Note *string `json:"note" validate:"omitempty,max=20"`
}

func TestDecodeOptionalJSONBody(t *testing.T) {
	var empty noteBody
	require.NoError(t, DecodeOptionalJSONBody(httptest.NewRequest(http.MethodPost, "/", nil), &empty))
	assert.Nil(t, empty.Note)

	blank := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	blank.ContentLength = -1
	require.NoError(t, DecodeOptionalJSONBody(blank, &empty))
	assert.Nil(t, empty.Note)

	chunked := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"note":"late"}`))
	chunked.ContentLength = -1
	var got noteBody
	require.NoError(t, DecodeOptionalJSONBody(chunked, &got))
	require.NotNil(t, got.Note)
	assert.Equal(t, "late", *got.Note)

	err := DecodeOptionalJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"note":`)), &got)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	err = DecodeOptionalJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"note":"this note is far too long"}`)), &got)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsQuantityBeyondScale(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"material_id":"7d4f5c2e-8a4b-4f8e-9c1d-2b3a4c5d6e7f","quantity":"0.00001"}`))
	var body quantityBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Equal(t, map[string]string{"quantity": "must have at most 4 decimal places"}, pkgerrors.As(err).Details())
}
