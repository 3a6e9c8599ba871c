package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/models"
)

// Client wraps the process-wide SQL pool. It is constructed once at startup
// and injected into every component that persists state.
type Client struct {
	db *sql.DB
}

func NewClient(connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

// NewClientWithDB wraps an existing pool; used by tests.
func NewClientWithDB(db *sql.DB) *Client {
	return &Client{db: db}
}

func (c *Client) Close() error {
	return c.db.Close()
}

// isUniqueViolation reports whether err is the store's unique-index rejection
// (postgres error class 23505). The ingestion pipeline relies on this check,
// not an application lock, to keep folder names exclusive.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ---- products ----

func (c *Client) CreateProduct(ctx context.Context, p *models.Product) error {
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO products (name, type, price, weight, description, storage_link, images_links)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, p.Name, p.Type, p.Price, p.Weight, p.Description, p.StorageLink, pq.Array(p.ImagesLinks)).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.Conflict, "a product with this name or storage folder already exists", err)
		}
		return apperr.Wrap(apperr.External, "failed to create product", err)
	}
	return nil
}

const productColumns = `id, name, type, price, weight, description, storage_link, images_links, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*models.Product, error) {
	var p models.Product
	var images pq.StringArray
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.Price, &p.Weight, &p.Description,
		&p.StorageLink, &images, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ImagesLinks = []string(images)
	return &p, nil
}

func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "product not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to get product", err)
	}
	return p, nil
}

func (c *Client) ListProductsByType(ctx context.Context, t models.ProductType) ([]models.Product, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE type = $1 ORDER BY created_at DESC
	`, t)
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to list products", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.External, "failed to scan product", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// GetProductsByIDs returns the products that still exist; missing ids are
// simply absent from the map.
func (c *Client) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	byID := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = ANY($1)
	`, pq.Array(strs))
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to load products", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.External, "failed to scan product", err)
		}
		byID[p.ID] = *p
	}
	return byID, rows.Err()
}

func (c *Client) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.External, "failed to delete product", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "product not found")
	}
	return nil
}

// ---- cart ----

// ownerClause returns the WHERE fragment and argument for a cart identity at
// the given placeholder position.
func ownerClause(identity models.CartIdentity, pos int) (string, interface{}) {
	if identity.IsUser() {
		return fmt.Sprintf("user_id = $%d", pos), *identity.UserID
	}
	return fmt.Sprintf("guest_id = $%d", pos), identity.GuestID
}

const cartColumns = `id, user_id, guest_id, product_id, quantity, created_at, updated_at`

func scanCartEntry(row interface{ Scan(...interface{}) error }) (*models.CartEntry, error) {
	var e models.CartEntry
	var userID uuid.NullUUID
	var guestID sql.NullString
	err := row.Scan(&e.ID, &userID, &guestID, &e.ProductID, &e.Quantity, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		e.UserID = &userID.UUID
	}
	e.GuestID = guestID.String
	return &e, nil
}

// AddCartEntry upserts on the (owner, product) composite key: a product
// already in the cart gets its quantity incremented instead of a second row.
func (c *Client) AddCartEntry(ctx context.Context, identity models.CartIdentity, productID uuid.UUID, quantity int) (*models.CartEntry, error) {
	var query string
	var owner interface{}
	if identity.IsUser() {
		owner = *identity.UserID
		query = `
			INSERT INTO cart_entries (user_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, product_id) WHERE user_id IS NOT NULL
			DO UPDATE SET quantity = cart_entries.quantity + EXCLUDED.quantity, updated_at = NOW()
			RETURNING ` + cartColumns
	} else {
		owner = identity.GuestID
		query = `
			INSERT INTO cart_entries (guest_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (guest_id, product_id) WHERE guest_id IS NOT NULL
			DO UPDATE SET quantity = cart_entries.quantity + EXCLUDED.quantity, updated_at = NOW()
			RETURNING ` + cartColumns
	}

	entry, err := scanCartEntry(c.db.QueryRowContext(ctx, query, owner, productID, quantity))
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to add cart entry", err)
	}
	return entry, nil
}

func (c *Client) SetCartQuantity(ctx context.Context, identity models.CartIdentity, productID uuid.UUID, quantity int) error {
	clause, owner := ownerClause(identity, 1)
	result, err := c.db.ExecContext(ctx, `
		UPDATE cart_entries SET quantity = $3, updated_at = NOW()
		WHERE `+clause+` AND product_id = $2
	`, owner, productID, quantity)
	if err != nil {
		return apperr.Wrap(apperr.External, "failed to update cart entry", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "item not found in cart")
	}
	return nil
}

func (c *Client) DeleteCartEntry(ctx context.Context, identity models.CartIdentity, productID uuid.UUID) (*models.CartEntry, error) {
	clause, owner := ownerClause(identity, 1)
	row := c.db.QueryRowContext(ctx, `
		DELETE FROM cart_entries WHERE `+clause+` AND product_id = $2
		RETURNING `+cartColumns, owner, productID)

	entry, err := scanCartEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "item not found in cart")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to remove cart entry", err)
	}
	return entry, nil
}

func (c *Client) ClearCart(ctx context.Context, identity models.CartIdentity) error {
	clause, owner := ownerClause(identity, 1)
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cart_entries WHERE `+clause, owner); err != nil {
		return apperr.Wrap(apperr.External, "failed to clear cart", err)
	}
	return nil
}

func (c *Client) ListCartEntries(ctx context.Context, identity models.CartIdentity) ([]models.CartEntry, error) {
	clause, owner := ownerClause(identity, 1)
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+cartColumns+` FROM cart_entries WHERE `+clause+` ORDER BY created_at ASC
	`, owner)
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to list cart entries", err)
	}
	defer rows.Close()

	var entries []models.CartEntry
	for rows.Next() {
		e, err := scanCartEntry(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.External, "failed to scan cart entry", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ---- orders ----

func (c *Client) CreateOrder(ctx context.Context, o *models.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return apperr.Wrap(apperr.External, "failed to encode order items", err)
	}
	shipping, _ := json.Marshal(o.ShippingAddress)
	billing, _ := json.Marshal(o.BillingAddress)

	var userID interface{}
	if o.UserID != nil {
		userID = *o.UserID
	}
	var guestEmail interface{}
	if o.GuestEmail != "" {
		guestEmail = o.GuestEmail
	}

	err = c.db.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, guest_email, items, shipping_address, billing_address,
			subtotal, shipping_price, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, userID, guestEmail, items, shipping, billing,
		o.Subtotal, o.ShippingPrice, o.TotalPrice, o.Status).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.External, "failed to create order", err)
	}
	return nil
}

const orderColumns = `id, user_id, guest_email, items, shipping_address, billing_address,
	subtotal, shipping_price, total_price, status, is_paid, paid_at, payment_result, created_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	var o models.Order
	var userID uuid.NullUUID
	var guestEmail sql.NullString
	var items, shipping, billing []byte
	var paymentResult []byte
	var paidAt sql.NullTime

	err := row.Scan(&o.ID, &userID, &guestEmail, &items, &shipping, &billing,
		&o.Subtotal, &o.ShippingPrice, &o.TotalPrice, &o.Status,
		&o.IsPaid, &paidAt, &paymentResult, &o.CreatedAt)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		o.UserID = &userID.UUID
	}
	o.GuestEmail = guestEmail.String
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(billing, &o.BillingAddress); err != nil {
		return nil, err
	}
	if len(paymentResult) > 0 {
		var pr models.PaymentResult
		if err := json.Unmarshal(paymentResult, &pr); err != nil {
			return nil, err
		}
		o.PaymentResult = &pr
	}
	return &o, nil
}

func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to get order", err)
	}
	return o, nil
}

func (c *Client) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to list orders", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.External, "failed to scan order", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	result, err := c.db.ExecContext(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return apperr.Wrap(apperr.External, "failed to update order status", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "order not found")
	}
	return nil
}

// MarkOrderPaid flips an order to paid exactly once; a repeat webhook for an
// already-paid order reports false with no error.
func (c *Client) MarkOrderPaid(ctx context.Context, id uuid.UUID, result models.PaymentResult, paidAt time.Time) (bool, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return false, apperr.Wrap(apperr.External, "failed to encode payment result", err)
	}

	res, err := c.db.ExecContext(ctx, `
		UPDATE orders SET is_paid = TRUE, paid_at = $2, payment_result = $3
		WHERE id = $1 AND is_paid = FALSE
	`, id, paidAt, payload)
	if err != nil {
		return false, apperr.Wrap(apperr.External, "failed to mark order paid", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ---- users ----

const userColumns = `id, first_name, last_name, email, password_hash, is_admin, is_verified,
	verification_token, verification_expires, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	var token sql.NullString
	var expires sql.NullTime
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.IsAdmin, &u.IsVerified, &token, &expires, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.VerificationToken = token.String
	if expires.Valid {
		u.VerificationExpires = &expires.Time
	}
	return &u, nil
}

func (c *Client) CreateUser(ctx context.Context, u *models.User) error {
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO users (first_name, last_name, email, password_hash, verification_token, verification_expires)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.VerificationToken, u.VerificationExpires).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.Conflict, "an account with this email already exists", err)
		}
		return apperr.Wrap(apperr.External, "failed to create user", err)
	}
	return nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to get user", err)
	}
	return u, nil
}

func (c *Client) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to get user", err)
	}
	return u, nil
}

func (c *Client) UpdateUserProfile(ctx context.Context, u *models.User) error {
	result, err := c.db.ExecContext(ctx, `
		UPDATE users SET first_name = $2, last_name = $3, email = $4 WHERE id = $1
	`, u.ID, u.FirstName, u.LastName, u.Email)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.Conflict, "an account with this email already exists", err)
		}
		return apperr.Wrap(apperr.External, "failed to update user profile", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

func (c *Client) GetUserByVerificationToken(ctx context.Context, tokenHash string) (*models.User, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE verification_token = $1 AND verification_expires > NOW()
	`, tokenHash)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "verification token is invalid or expired")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to look up verification token", err)
	}
	return u, nil
}

func (c *Client) MarkUserVerified(ctx context.Context, id uuid.UUID) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE users SET is_verified = TRUE, verification_token = NULL, verification_expires = NULL
		WHERE id = $1
	`, id)
	if err != nil {
		return apperr.Wrap(apperr.External, "failed to mark user verified", err)
	}
	return nil
}

func (c *Client) SetVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE users SET verification_token = $2, verification_expires = $3 WHERE id = $1
	`, id, tokenHash, expires)
	if err != nil {
		return apperr.Wrap(apperr.External, "failed to store verification token", err)
	}
	return nil
}
