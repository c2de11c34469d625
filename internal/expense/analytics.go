package expense

import "context"

// Fixed aggregate queries backing the analysis agent. Both are scoped to the
// requesting user and to the trailing 90 days; amounts are cast to float8 so
// row values come back as plain numbers.
const (
	categorySummarySQL = `
		SELECT
			expense_category,
			COUNT(*) AS transaction_count,
			SUM(total_amount)::float8 AS total_spent,
			AVG(total_amount)::float8 AS avg_amount,
			MAX(transaction_date) AS latest_date,
			MIN(transaction_date) AS earliest_date
		FROM receipts
		WHERE user_id = $1
			AND transaction_date >= CURRENT_DATE - INTERVAL '90 days'
		GROUP BY expense_category
		ORDER BY total_spent DESC`

	topMerchantsSQL = `
		SELECT
			merchant_name,
			COUNT(*) AS visit_count,
			SUM(total_amount)::float8 AS total_spent
		FROM receipts
		WHERE user_id = $1
			AND transaction_date >= CURRENT_DATE - INTERVAL '90 days'
		GROUP BY merchant_name
		ORDER BY total_spent DESC
		LIMIT 10`
)

// CategorySummary returns per-category spend aggregates for the last 90 days,
// highest total first.
func CategorySummary(ctx context.Context, ex Executor, userID string) ([]Row, error) {
	return ex.Query(ctx, categorySummarySQL, userID)
}

// TopMerchants returns the ten most expensive merchants of the last 90 days.
func TopMerchants(ctx context.Context, ex Executor, userID string) ([]Row, error) {
	return ex.Query(ctx, topMerchantsSQL, userID)
}
