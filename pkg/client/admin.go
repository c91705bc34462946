package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/spec-kit/mitra-marketplace/internal/api/dto"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/registration"
	"github.com/spec-kit/mitra-marketplace/internal/service"
)

// File is a document attached to a mitra registration.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

func (f *File) document() *registration.Document {
	if f == nil {
		return nil
	}
	return &registration.Document{Name: f.Name, ContentType: f.ContentType, Size: int64(len(f.Content))}
}

// Register signs up a customer. The form is validated before anything is sent.
func (c *Client) Register(ctx context.Context, form registration.Form) (*dto.AccountResponse, error) {
	form.Kind = registration.KindCustomer
	if err := form.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(registerRequest(form))
	if err != nil {
		return nil, err
	}
	var resp dto.AccountResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/auth/register", body, jsonContentType, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterMitra signs up a therapist with a KTP image and an optional
// certificate. A missing KTP, unaccepted terms or mismatched passwords fail
// locally without contacting the server.
func (c *Client) RegisterMitra(ctx context.Context, form registration.Form, ktp, certificate *File) (*dto.AccountResponse, error) {
	form.Kind = registration.KindMitra
	form.KTP = ktp.document()
	form.Certificate = certificate.document()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"full_name":        form.FullName,
		"email":            form.Email,
		"phone":            form.Phone,
		"city":             form.City,
		"bio":              form.Bio,
		"password":         form.Password,
		"confirm_password": form.ConfirmPassword,
		"agree_terms":      strconv.FormatBool(form.AgreeTerms),
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := writeFile(w, "ktp", ktp); err != nil {
		return nil, err
	}
	if certificate != nil {
		if err := writeFile(w, "certificate", certificate); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var resp dto.AccountResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/auth/register-mitra", buf.Bytes(), w.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func writeFile(w *multipart.Writer, field string, f *File) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
	header.Set("Content-Type", f.ContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(f.Content)
	return err
}

func registerRequest(form registration.Form) dto.RegisterRequest {
	return dto.RegisterRequest{
		FullName:        form.FullName,
		Email:           form.Email,
		Phone:           form.Phone,
		City:            form.City,
		Bio:             form.Bio,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
		AgreeTerms:      form.AgreeTerms,
	}
}

// Stats returns the admin dashboard counters.
func (c *Client) Stats(ctx context.Context) (*domain.AdminStats, error) {
	var stats domain.AdminStats
	if err := c.do(ctx, fasthttp.MethodGet, "/admin", nil, "", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListMitra lists mitra records with their profiles. An empty status lists all.
func (c *Client) ListMitra(ctx context.Context, status string) ([]dto.MitraResponse, error) {
	var items []dto.MitraResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/admin/mitra-verification"+query("status", status), nil, "", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ApproveMitra approves a mitra.
func (c *Client) ApproveMitra(ctx context.Context, mitraID string) (*dto.MitraResponse, error) {
	return c.verify(ctx, mitraID, "approve")
}

// RejectMitra rejects a mitra.
func (c *Client) RejectMitra(ctx context.Context, mitraID string) (*dto.MitraResponse, error) {
	return c.verify(ctx, mitraID, "reject")
}

func (c *Client) verify(ctx context.Context, mitraID, action string) (*dto.MitraResponse, error) {
	var resp dto.MitraResponse
	path := "/admin/mitra-verification/" + url.PathEscape(mitraID) + "/" + action
	if err := c.do(ctx, fasthttp.MethodPost, path, nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUsers lists identities with roles, optionally filtered.
func (c *Client) ListUsers(ctx context.Context, search, role string) (*service.UserListing, error) {
	params := url.Values{}
	if search != "" {
		params.Set("search", search)
	}
	if role != "" {
		params.Set("role", role)
	}
	path := "/admin/users"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var listing service.UserListing
	if err := c.do(ctx, fasthttp.MethodGet, path, nil, "", &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// SetUserRole reassigns a role.
func (c *Client) SetUserRole(ctx context.Context, userID string, role domain.Role) error {
	body, err := json.Marshal(dto.UpdateRoleRequest{Role: string(role)})
	if err != nil {
		return err
	}
	return c.do(ctx, fasthttp.MethodPut, "/admin/users/"+url.PathEscape(userID)+"/role", body, jsonContentType, nil)
}

// ListServices lists the catalog.
func (c *Client) ListServices(ctx context.Context) ([]dto.ServiceResponse, error) {
	var items []dto.ServiceResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/admin/services", nil, "", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListPromos lists discount codes.
func (c *Client) ListPromos(ctx context.Context) ([]dto.PromoResponse, error) {
	var items []dto.PromoResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/admin/promos", nil, "", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListOrders lists orders with display names. An empty status lists all.
func (c *Client) ListOrders(ctx context.Context, status string) ([]dto.OrderResponse, error) {
	var items []dto.OrderResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/admin/orders"+query("status", status), nil, "", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Finance returns the revenue summary.
func (c *Client) Finance(ctx context.Context) (*domain.FinanceSummary, error) {
	var summary domain.FinanceSummary
	if err := c.do(ctx, fasthttp.MethodGet, "/admin/finance", nil, "", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func query(key, value string) string {
	if value == "" {
		return ""
	}
	return "?" + url.Values{key: {value}}.Encode()
}
