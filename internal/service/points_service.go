package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rewear-app/rewear-api/internal/models"
	"github.com/rewear-app/rewear-api/internal/repository"
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
	"github.com/rewear-app/rewear-api/pkg/export"
)

type pointsRepository interface {
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.PointsTransaction, int, error)
	ListAllByUser(ctx context.Context, userID string) ([]models.PointsTransaction, error)
	ListRedemptions(ctx context.Context, userID string, page, pageSize int) ([]models.PointsTransaction, int, error)
	BalanceOf(ctx context.Context, userID string) (int, error)
	Redeem(ctx context.Context, buyerID, ownerID, itemID string, price int) error
}

// Statement is a rendered points ledger export.
type Statement struct {
	FileName    string
	ContentType string
	Content     []byte
}

// PointsService exposes the points ledger, direct item redemption and
// statement exports.
type PointsService struct {
	repo           pointsRepository
	items          swapItemReader
	notifier       notifier
	cache          catalogCache
	validator      *validator.Validate
	csv            *export.CSVExporter
	pdf            *export.PDFExporter
	statementTitle string
	logger         *zap.Logger
}

// NewPointsService constructs a PointsService.
func NewPointsService(repo pointsRepository, items swapItemReader, notifier notifier, cache catalogCache, validate *validator.Validate, statementTitle string, logger *zap.Logger) *PointsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if statementTitle == "" {
		statementTitle = "Points Statement"
	}
	return &PointsService{
		repo:           repo,
		items:          items,
		notifier:       notifier,
		cache:          cache,
		validator:      validate,
		csv:            export.NewCSVExporter(),
		pdf:            export.NewPDFExporter(),
		statementTitle: statementTitle,
		logger:         logger,
	}
}

// Redeem buys an active listing outright with the caller's points. There
// is no owner approval step: the item is claimed and the balances move
// immediately, mirroring a points-settled swap's settlement.
func (s *PointsService) Redeem(ctx context.Context, userID string, req models.RedeemRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	item, err := s.items.FindByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	if item.OwnerID == userID {
		return 0, appErrors.Clone(appErrors.ErrSameUser, "cannot redeem your own item")
	}
	if item.Status != models.ItemStatusActive {
		return 0, appErrors.ErrItemNotActive
	}

	price := item.PointsValue
	if err := s.repo.Redeem(ctx, userID, item.OwnerID, item.ID, price); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientBalance):
			return 0, appErrors.ErrInsufficientPoints
		case errors.Is(err, repository.ErrItemUnavailable):
			return 0, appErrors.ErrItemNotActive
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to redeem item")
	}

	if s.notifier != nil {
		s.notifier.Notify(item.OwnerID, models.NotificationPointsEarned, "Item redeemed",
			fmt.Sprintf("%s was redeemed for %d points", item.Title, price), &item.ID, nil)
	}
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, featuredCacheKey); err != nil {
			s.logger.Warn("featured cache invalidation failed", zap.Error(err))
		}
	}

	return price, nil
}

// Redemptions returns a page of the user's redemption history.
func (s *PointsService) Redemptions(ctx context.Context, userID string, page, pageSize int) ([]models.PointsTransaction, *models.Pagination, error) {
	entries, total, err := s.repo.ListRedemptions(ctx, userID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list redemptions")
	}
	return entries, paginationFor(total, page, pageSize), nil
}

// Balance returns the user's current points balance.
func (s *PointsService) Balance(ctx context.Context, userID string) (int, error) {
	balance, err := s.repo.BalanceOf(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read balance")
	}
	return balance, nil
}

// Transactions returns a page of the user's ledger, newest first.
func (s *PointsService) Transactions(ctx context.Context, userID string, page, pageSize int) ([]models.PointsTransaction, *models.Pagination, error) {
	transactions, total, err := s.repo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
	}
	return transactions, paginationFor(total, page, pageSize), nil
}

// ExportStatement renders the user's full ledger as CSV or PDF.
func (s *PointsService) ExportStatement(ctx context.Context, userID, format string) (*Statement, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	transactions, err := s.repo.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger")
	}

	data := statementDataset(transactions)
	stamp := time.Now().UTC().Format("20060102")

	switch format {
	case "pdf":
		content, err := s.pdf.Render(data, s.statementTitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf statement")
		}
		return &Statement{
			FileName:    fmt.Sprintf("points-statement-%s.pdf", stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv statement")
		}
		return &Statement{
			FileName:    fmt.Sprintf("points-statement-%s.csv", stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	}
}

func statementDataset(transactions []models.PointsTransaction) export.Dataset {
	data := export.Dataset{
		Headers: []string{"Date", "Type", "Amount", "Description"},
		Rows:    make([]map[string]string, 0, len(transactions)),
	}
	for _, tx := range transactions {
		data.Rows = append(data.Rows, map[string]string{
			"Date":        tx.CreatedAt.UTC().Format("2006-01-02 15:04"),
			"Type":        string(tx.Type),
			"Amount":      strconv.Itoa(tx.Amount),
			"Description": tx.Description,
		})
	}
	return data
}
