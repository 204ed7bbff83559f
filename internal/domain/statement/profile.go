package statement

// AccountType distinguishes statement layouts with separate withdrawal and
// deposit columns from layouts with one amount column plus a sign indicator.
type AccountType string

const (
	AccountSavings    AccountType = "savings"
	AccountCurrent    AccountType = "current"
	AccountCreditCard AccountType = "credit_card"
)

// FileFormat is the physical file format of a statement export.
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatXLSX FileFormat = "xlsx"
)

// Field names a logical transaction field that gets mapped onto a physical
// column of a particular bank export.
type Field string

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldAmount      Field = "amount"
	FieldWithdrawal  Field = "withdrawal"
	FieldDeposit     Field = "deposit"
	FieldIndicator   Field = "indicator"
	FieldBalance     Field = "balance"
	FieldReference   Field = "reference"
)

// FormatProfile describes how to interpret one bank's export format. It is
// immutable and externally supplied; built-in profiles for known banks are
// available via Profiles().
type FormatProfile struct {
	Bank        string
	AccountType AccountType
	FileFormat  FileFormat

	// Columns maps logical fields to the primary physical column name.
	// Per-bank extractors contribute ordered alias fallbacks on top.
	Columns map[Field]string

	// HeaderTokens are case-insensitive substrings that identify the header
	// row among leading metadata lines.
	HeaderTokens []string

	// SkipPatterns mark non-transaction rows (opening balance, totals).
	SkipPatterns []string

	// DateFormats are Go layouts tried in order.
	DateFormats []string

	// CreditTokens and DebitTokens are accepted values of the indicator
	// column in signed-indicator mode.
	CreditTokens []string
	DebitTokens  []string
}

// Profiles returns the built-in format profiles keyed by "bank/accountType".
// Callers may supply their own FormatProfile instead; these cover the bank
// exports the registry ships parsers for.
func Profiles() map[string]*FormatProfile {
	return map[string]*FormatProfile{
		"hdfc/savings": {
			Bank:        "hdfc",
			AccountType: AccountSavings,
			FileFormat:  FormatCSV,
			Columns: map[Field]string{
				FieldDate:        "Date",
				FieldDescription: "Narration",
				FieldWithdrawal:  "Withdrawal Amt.",
				FieldDeposit:     "Deposit Amt.",
				FieldBalance:     "Closing Balance",
				FieldReference:   "Chq./Ref.No.",
			},
			HeaderTokens: []string{"narration", "withdrawal", "deposit"},
			SkipPatterns: []string{"opening balance", "closing balance", "statement summary"},
			DateFormats:  []string{"02/01/06", "02/01/2006", "02-01-2006"},
		},
		"icici/current": {
			Bank:        "icici",
			AccountType: AccountCurrent,
			FileFormat:  FormatXLSX,
			Columns: map[Field]string{
				FieldDate:        "Transaction Date",
				FieldDescription: "Transaction Remarks",
				FieldAmount:      "Transaction Amount(INR)",
				FieldIndicator:   "Cr/Dr",
				FieldBalance:     "Available Balance(INR)",
				FieldReference:   "Cheque no /Ref No",
			},
			HeaderTokens: []string{"transaction remarks", "transaction amount", "cr/dr"},
			SkipPatterns: []string{"opening balance", "closing balance", "legends", "transactions list"},
			DateFormats:  []string{"02/01/2006", "02-01-2006", "2006-01-02"},
			CreditTokens: []string{"cr", "cr.", "credit"},
			DebitTokens:  []string{"dr", "dr.", "debit"},
		},
		"sbi/savings": {
			Bank:        "sbi",
			AccountType: AccountSavings,
			FileFormat:  FormatCSV,
			Columns: map[Field]string{
				FieldDate:        "Txn Date",
				FieldDescription: "Description",
				FieldWithdrawal:  "Debit",
				FieldDeposit:     "Credit",
				FieldBalance:     "Balance",
				FieldReference:   "Ref No./Cheque No.",
			},
			HeaderTokens: []string{"txn date", "debit", "credit", "balance"},
			SkipPatterns: []string{"opening balance", "closing balance", "computer generated", "account statement"},
			DateFormats:  []string{"2 Jan 2006", "02 Jan 2006", "02-01-2006", "02/01/2006"},
		},
		"axis/credit_card": {
			Bank:        "axis",
			AccountType: AccountCreditCard,
			FileFormat:  FormatCSV,
			Columns: map[Field]string{
				FieldDate:        "Transaction Date",
				FieldDescription: "Transaction Details",
				FieldAmount:      "Amount (INR)",
				FieldIndicator:   "Debit/Credit",
			},
			HeaderTokens: []string{"transaction details", "amount"},
			SkipPatterns: []string{"total amount due", "minimum amount due", "payment summary", "statement period"},
			DateFormats:  []string{"02/01/2006", "02 Jan '06", "02 Jan 2006"},
			CreditTokens: []string{"credit", "cr"},
			DebitTokens:  []string{"debit", "dr"},
		},
	}
}
