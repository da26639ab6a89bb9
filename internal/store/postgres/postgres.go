package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fashionhub/backend/internal/domain"
	"fashionhub/backend/internal/reconcile"
	"fashionhub/backend/internal/store"
	"fashionhub/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx so stock mutations can run
// standalone or inside a sale transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, reference_number, price_cents, category, created_at, updated_at
		FROM products
		ORDER BY created_at DESC, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	index := make(map[string]int, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.ReferenceNumber, &p.PriceCents, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.UpdatedAt = p.UpdatedAt.UTC()
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	variantRows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, size, stock
		FROM product_variants
		ORDER BY product_id, size
	`)
	if err != nil {
		return nil, err
	}
	defer variantRows.Close()

	for variantRows.Next() {
		var v domain.ProductVariant
		if err := variantRows.Scan(&v.ID, &v.ProductID, &v.Size, &v.Stock); err != nil {
			return nil, err
		}
		i, exists := index[v.ProductID]
		if !exists {
			continue
		}
		products[i].Variants = append(products[i].Variants, v)
		products[i].TotalStock += v.Stock
	}
	if err := variantRows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.getProductBy(ctx, "id", id)
}

func (s *Store) GetProductByReference(ctx context.Context, referenceNumber string) (*domain.Product, error) {
	return s.getProductBy(ctx, "reference_number", referenceNumber)
}

func (s *Store) getProductBy(ctx context.Context, column string, value string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, reference_number, price_cents, category, created_at, updated_at
		FROM products
		WHERE `+column+` = $1
	`, value).Scan(&p.ID, &p.Name, &p.ReferenceNumber, &p.PriceCents, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProductNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, size, stock
		FROM product_variants
		WHERE product_id = $1
		ORDER BY size
	`, p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Size, &v.Stock); err != nil {
			return nil, err
		}
		p.Variants = append(p.Variants, v)
		p.TotalStock += v.Stock
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.ReferenceNumber == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, name, reference_number, price_cents, category, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$6)
	`, product.ID, product.Name, product.ReferenceNumber, product.PriceCents, product.Category, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	for i := range product.Variants {
		v := &product.Variants[i]
		if v.Size == "" || v.Stock < 0 {
			return nil, store.ErrInvalidInput
		}
		if v.ID == "" {
			v.ID = xid.New("var")
		}
		v.ProductID = product.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO product_variants (id, product_id, size, stock)
			VALUES ($1,$2,$3,$4)
		`, v.ID, v.ProductID, v.Size, v.Stock)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.ErrInvalidInput
			}
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, product.ID)
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product, replaceVariants bool) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.ReferenceNumber == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name = $2, reference_number = $3, price_cents = $4, category = $5, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.ReferenceNumber, product.PriceCents, product.Category)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrProductNotFound
	}

	if replaceVariants {
		sizes := make([]string, 0, len(product.Variants))
		for _, v := range product.Variants {
			if v.Size == "" || v.Stock < 0 {
				return nil, store.ErrInvalidInput
			}
			sizes = append(sizes, v.Size)
			// Upsert keeps the variant id stable for sizes that survive the edit.
			_, err = tx.ExecContext(ctx, `
				INSERT INTO product_variants (id, product_id, size, stock)
				VALUES ($1,$2,$3,$4)
				ON CONFLICT (product_id, size)
				DO UPDATE SET stock = EXCLUDED.stock
			`, xid.New("var"), product.ID, v.Size, v.Stock)
			if err != nil {
				return nil, err
			}
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM product_variants
			WHERE product_id = $1 AND size <> ALL($2)
		`, product.ID, sizes)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var referenced bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM sale_items WHERE product_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return store.ErrProductInUse
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM product_variants WHERE product_id = $1`, id)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrProductNotFound
	}

	return tx.Commit()
}

func (s *Store) AdjustStock(ctx context.Context, productID string, size string, delta int) (int, error) {
	return adjustStock(ctx, s.db, productID, size, delta)
}

func (s *Store) AdjustStockBatch(ctx context.Context, deltas []domain.StockDelta) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range deltas {
		if _, err := adjustStock(ctx, tx, d.ProductID, d.Size, d.Delta); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// adjustStock applies one guarded counter mutation. The WHERE clause carries
// the non-negativity invariant so a concurrent decrement can never drive the
// counter below zero regardless of interleaving.
func adjustStock(ctx context.Context, q querier, productID string, size string, delta int) (int, error) {
	var stock int
	err := q.QueryRowContext(ctx, `
		UPDATE product_variants
		SET stock = stock + $3
		WHERE product_id = $1 AND size = $2 AND stock + $3 >= 0
		RETURNING stock
	`, productID, size, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	var available int
	err = q.QueryRowContext(ctx, `
		SELECT stock FROM product_variants WHERE product_id = $1 AND size = $2
	`, productID, size).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := q.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)
		`, productID).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, store.ErrProductNotFound
		}
		return 0, store.ErrVariantNotFound
	}
	if err != nil {
		return 0, err
	}

	return 0, &store.InsufficientStockError{
		ProductID: productID,
		Size:      size,
		Available: available,
		Requested: -delta,
	}
}

func (s *Store) UpsertCustomer(ctx context.Context, name string, phone string, email string) (*domain.Customer, error) {
	if name == "" || phone == "" {
		return nil, store.ErrInvalidInput
	}
	return upsertCustomer(ctx, s.db, name, phone, email)
}

// upsertCustomer is a single atomic insert-or-update keyed on phone. Two
// concurrent calls for the same phone cannot produce duplicate rows.
func upsertCustomer(ctx context.Context, q querier, name string, phone string, email string) (*domain.Customer, error) {
	var c domain.Customer
	err := q.QueryRowContext(ctx, `
		INSERT INTO customers (id, name, phone, email, created_at, updated_at)
		VALUES ($1,$2,$3,$4,now(),now())
		ON CONFLICT (phone)
		DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, updated_at = now()
		RETURNING id, name, phone, email, created_at, updated_at
	`, xid.New("cust"), name, phone, email).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, email, created_at, updated_at
		FROM customers
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var referenced bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM sales WHERE customer_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return store.ErrCustomerHasSales
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

func (s *Store) ListSalesByCustomer(ctx context.Context, customerID string) ([]domain.Sale, error) {
	return s.querySales(ctx, `WHERE customer_id = $1`, 0, customerID)
}

func (s *Store) CommitSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 || sale.CustomerName == "" || sale.CustomerPhone == "" {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	customer, err := upsertCustomer(ctx, tx, sale.CustomerName, sale.CustomerPhone, sale.CustomerEmail)
	if err != nil {
		return nil, err
	}
	sale.CustomerID = customer.ID

	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		if _, err := adjustStock(ctx, tx, item.ProductID, item.Size, -item.Quantity); err != nil {
			return nil, err
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, invoice_number, customer_id, customer_name, customer_phone, customer_email,
			total_cents, tax_cents, payment_method, payment_id, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, sale.ID, sale.InvoiceNumber, sale.CustomerID, sale.CustomerName, sale.CustomerPhone,
		nullIfEmpty(sale.CustomerEmail), sale.TotalCents, sale.TaxCents, sale.PaymentMethod,
		nullIfEmpty(sale.PaymentID), sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateInvoice
		}
		return nil, err
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		if item.ID == "" {
			item.ID = xid.New("item")
		}
		item.SaleID = sale.ID
		err = tx.QueryRowContext(ctx, `
			SELECT name, reference_number FROM products WHERE id = $1
		`, item.ProductID).Scan(&item.ProductName, &item.ReferenceNumber)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (
				id, sale_id, product_id, product_name, reference_number,
				size, quantity, unit_price_cents, total_price_cents
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, item.ID, sale.ID, item.ProductID, item.ProductName, item.ReferenceNumber,
			item.Size, item.Quantity, item.UnitPriceCents, item.TotalPriceCents)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &sale, nil
}

func (s *Store) ReconcileSale(ctx context.Context, saleID string, header domain.Sale, plan reconcile.Plan) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var existingID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM sales WHERE id = $1 FOR UPDATE
	`, saleID).Scan(&existingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	for _, d := range plan.Deltas {
		if _, err := adjustStock(ctx, tx, d.ProductID, d.Size, d.Delta); err != nil {
			return nil, err
		}
	}

	for _, item := range plan.Removed {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM sale_items WHERE id = $1 AND sale_id = $2
		`, item.ID, saleID)
		if err != nil {
			return nil, err
		}
	}

	for _, change := range plan.Modified {
		_, err = tx.ExecContext(ctx, `
			UPDATE sale_items
			SET quantity = $3, total_price_cents = $4
			WHERE id = $1 AND sale_id = $2
		`, change.Item.ID, saleID, change.NewQuantity, change.NewTotalCents)
		if err != nil {
			return nil, err
		}
	}

	for _, add := range plan.Added {
		var productName, referenceNumber string
		err = tx.QueryRowContext(ctx, `
			SELECT name, reference_number FROM products WHERE id = $1
		`, add.ProductID).Scan(&productName, &referenceNumber)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrProductNotFound
			}
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (
				id, sale_id, product_id, product_name, reference_number,
				size, quantity, unit_price_cents, total_price_cents
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, xid.New("item"), saleID, add.ProductID, productName, referenceNumber,
			add.Size, add.Quantity, add.UnitPriceCents, add.UnitPriceCents*int64(add.Quantity))
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET customer_name = $2, customer_phone = $3, customer_email = $4,
			payment_method = $5, payment_id = $6, total_cents = $7, tax_cents = $8,
			created_at = COALESCE($9, created_at)
		WHERE id = $1
	`, saleID, header.CustomerName, header.CustomerPhone, nullIfEmpty(header.CustomerEmail),
		header.PaymentMethod, nullIfEmpty(header.PaymentID), header.TotalCents, header.TaxCents,
		nullIfZero(header.CreatedAt))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetSale(ctx, saleID)
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sales, err := s.querySales(ctx, `WHERE id = $1`, 0, id)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, store.ErrNotFound
	}
	return &sales[0], nil
}

func (s *Store) GetSaleByInvoiceNumber(ctx context.Context, invoiceNumber string) (*domain.Sale, error) {
	sales, err := s.querySales(ctx, `WHERE invoice_number = $1`, 0, invoiceNumber)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, store.ErrNotFound
	}
	return &sales[0], nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	return s.querySales(ctx, "", limit)
}

func (s *Store) querySales(ctx context.Context, where string, limit int, args ...any) ([]domain.Sale, error) {
	query := `
		SELECT id, invoice_number, customer_id, customer_name, customer_phone,
			COALESCE(customer_email, ''), total_cents, tax_cents, payment_method,
			COALESCE(payment_id, ''), created_at
		FROM sales ` + where + `
		ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
	index := make(map[string]int, 32)
	ids := make([]string, 0, 32)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.InvoiceNumber, &sale.CustomerID, &sale.CustomerName,
			&sale.CustomerPhone, &sale.CustomerEmail, &sale.TotalCents, &sale.TaxCents,
			&sale.PaymentMethod, &sale.PaymentID, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		index[sale.ID] = len(sales)
		ids = append(ids, sale.ID)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return sales, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, product_name, reference_number,
			size, quantity, unit_price_cents, total_price_cents
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.SaleItem
		if err := itemRows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName,
			&item.ReferenceNumber, &item.Size, &item.Quantity, &item.UnitPriceCents,
			&item.TotalPriceCents); err != nil {
			return nil, err
		}
		if i, exists := index[item.SaleID]; exists {
			sales[i].Items = append(sales[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	return sales, nil
}

func (s *Store) GetSettings(ctx context.Context) (*domain.ShopSettings, error) {
	var settings domain.ShopSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT shop_name, address, phone, email, gst_no, currency_code, currency_symbol,
			tax_rate, return_policy, updated_at
		FROM shop_settings
		WHERE id = 1
	`).Scan(&settings.ShopName, &settings.Address, &settings.Phone, &settings.Email,
		&settings.GSTNo, &settings.CurrencyCode, &settings.CurrencySymbol,
		&settings.TaxRate, &settings.ReturnPolicy, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return &settings, nil
}

func (s *Store) UpdateSettings(ctx context.Context, settings domain.ShopSettings) (*domain.ShopSettings, error) {
	if settings.TaxRate < 0 || settings.TaxRate > 1 {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO shop_settings (
			id, shop_name, address, phone, email, gst_no, currency_code, currency_symbol,
			tax_rate, return_policy, updated_at
		)
		VALUES (1,$1,$2,$3,$4,$5,$6,$7,$8,$9,now())
		ON CONFLICT (id)
		DO UPDATE SET shop_name = EXCLUDED.shop_name, address = EXCLUDED.address,
			phone = EXCLUDED.phone, email = EXCLUDED.email, gst_no = EXCLUDED.gst_no,
			currency_code = EXCLUDED.currency_code, currency_symbol = EXCLUDED.currency_symbol,
			tax_rate = EXCLUDED.tax_rate, return_policy = EXCLUDED.return_policy, updated_at = now()
		RETURNING updated_at
	`, settings.ShopName, settings.Address, settings.Phone, settings.Email, settings.GSTNo,
		settings.CurrencyCode, settings.CurrencySymbol, settings.TaxRate, settings.ReturnPolicy).
		Scan(&settings.UpdatedAt)
	if err != nil {
		return nil, err
	}
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return &settings, nil
}

func (s *Store) ListLowStockVariants(ctx context.Context, threshold int) ([]domain.LowStockVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.reference_number, v.size, v.stock
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.stock <= $1
		ORDER BY v.stock, p.name, v.size
	`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.LowStockVariant, 0, 32)
	for rows.Next() {
		var v domain.LowStockVariant
		if err := rows.Scan(&v.ProductID, &v.ProductName, &v.ReferenceNumber, &v.Size, &v.Stock); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetSalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesSummary, error) {
	summary := domain.SalesSummary{
		From: from.UTC().Format(time.RFC3339),
		To:   to.UTC().Format(time.RFC3339),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_cents), 0), COALESCE(SUM(tax_cents), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&summary.Sales, &summary.RevenueCents, &summary.TaxCents)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(i.quantity), 0)
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		WHERE s.created_at >= $1 AND s.created_at < $2
	`, from, to).Scan(&summary.UnitsSold)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	return summary, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullIfZero(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}
