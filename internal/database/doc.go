// Package database provides the data access layer for the catalog.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, process-wide gateway
//	├── errors.go        # Driver error classification, retrying transactions
//	├── books/           # Book inventory and copy counters
//	├── categories/      # Categories and their book counters
//	├── loans/           # Loans and the book/user display join
//	├── users/           # User accounts
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository bound to a *gorm.DB. Pass the
// transaction handle to build repositories that commit together:
//
//	db, err := database.Init("./library.db", database.Options{})
//
//	err = database.Transaction(db.DB, func(tx *gorm.DB) error {
//		if ok, err := books.NewRepository(tx).TakeCopy(bookID); err != nil || !ok {
//			return err
//		}
//		return loans.NewRepository(tx).Create(loan)
//	})
//
// # Identifiers
//
// Every record uses a 24-character hex id generated on insert. References
// between records (Book.CategoryID, Loan.BookID, Loan.UserID) are plain ids
// with no foreign keys, so deleting a referenced record leaves them
// dangling and readers must tolerate a missing target.
package database
