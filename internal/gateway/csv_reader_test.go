package gateway

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"recon-report/internal/apperror"
	"recon-report/internal/domain"
	"recon-report/internal/fixtures"
)

func TestFileDocumentRepository_GetDocument(t *testing.T) {
	tests := []struct {
		name        string
		content     []byte
		wantType    domain.NormalizedType
		wantContent string
		wantCode    apperror.ErrorCode
		wantErr     bool
	}{
		{
			name:        "csv statement is passed through as tabular text",
			content:     []byte(fixtures.SampleBankCSV),
			wantType:    domain.TabularText,
			wantContent: fixtures.SampleBankCSV,
		},
		{
			name:        "byte order mark, padding and blank rows are dropped",
			content:     []byte("\xef\xbb\xbfDate, Description ,Amount\n\n2024-03-01,  Deposit ,1500.00\n,,\n"),
			wantType:    domain.TabularText,
			wantContent: "Date,Description,Amount\n2024-03-01,Deposit,1500.00\n",
		},
		{
			name:     "pdf is a binary document",
			content:  []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"),
			wantType: domain.BinaryDocument,
		},
		{
			name:     "scanned image is a binary document",
			content:  []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"),
			wantType: domain.BinaryDocument,
		},
		{
			name:     "unknown binary is unsupported",
			content:  []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff, 0x00, 0x10},
			wantCode: apperror.ErrUnsupported,
			wantErr:  true,
		},
		{
			name:     "empty file",
			content:  []byte("  \n"),
			wantCode: apperror.ErrInvalidInput,
			wantErr:  true,
		},
		{
			name:     "unterminated quote",
			content:  []byte("Date,Description\n2024-03-01,\"open\n"),
			wantCode: apperror.ErrInvalidInput,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "statement.bin")
			require.NoError(t, os.WriteFile(path, tt.content, 0o600))

			repo := NewFileDocumentRepository(nil)
			got, err := repo.GetDocument(context.Background(), path)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, apperror.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "statement.bin", got.Filename)
			assert.Equal(t, tt.wantType, got.NormalizedType)
			if tt.wantContent != "" {
				assert.Equal(t, tt.wantContent, string(got.Content))
			}
			if tt.wantType == domain.BinaryDocument {
				assert.Equal(t, tt.content, got.Content)
			}
		})
	}
}

func TestFileDocumentRepository_GetDocument_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Date", "Description", "Amount", "ID"},
		{"2024-03-01", "Service Revenue: ABC Corp", "1500.00", "INV-101"},
		{"2024-03-31", "Interest Income", "12.50", "INT-01"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := NewFileDocumentRepository(nil).GetDocument(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, domain.TabularText, got.NormalizedType)
	assert.Equal(t, "text/csv", got.MimeType)
	assert.Equal(t, "Date,Description,Amount,ID\n2024-03-01,Service Revenue: ABC Corp,1500.00,INV-101\n2024-03-31,Interest Income,12.50,INT-01\n", string(got.Content))
}

func TestFileDocumentRepository_GetDocument_FileErrors(t *testing.T) {
	repo := NewFileDocumentRepository(nil)

	t.Run("missing file", func(t *testing.T) {
		_, err := repo.GetDocument(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
		assert.Equal(t, apperror.ErrNotFound, apperror.CodeOf(err))
	})

	t.Run("too large", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "big.csv")
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a,b\n", 64)), 0o600))
		small := &FileDocumentRepository{MaxSize: 16}
		_, err := small.GetDocument(context.Background(), path)
		assert.Equal(t, apperror.ErrInvalidInput, apperror.CodeOf(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := repo.GetDocument(ctx, "irrelevant.csv")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// Benchmark tests

func BenchmarkGetDocument(b *testing.B) {
	lines := []string{"Date,Description,Amount,Reference"}
	for i := 0; i < 1000; i++ {
		lines = append(lines, "2024-03-01,Payment description,-150.00,REF-1")
	}
	path := filepath.Join(b.TempDir(), "benchmark.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600); err != nil {
		b.Fatalf("Failed to create temp file: %v", err)
	}

	repo := NewFileDocumentRepository(nil)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.GetDocument(ctx, path); err != nil {
			b.Fatalf("Error in benchmark: %v", err)
		}
	}
}
