package library

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// ConfigStore owns the circulation policy values.
type ConfigStore struct {
	storage Storage
	logger  *log.Logger
	config  PolicyConfig
}

// NewConfigStore restores the stored policy, falling back to defaults for
// any missing or non-positive field.
func NewConfigStore(storage Storage, logger *log.Logger) (*ConfigStore, error) {
	stored, err := restoreSlot[PolicyConfig](storage, logger, slotPolicy)
	if err != nil {
		return nil, fmt.Errorf("restore policy: %w", err)
	}
	defaults := DefaultPolicy()
	if stored.StaffLoanDays <= 0 {
		stored.StaffLoanDays = defaults.StaffLoanDays
	}
	if stored.StudentLoanDays <= 0 {
		stored.StudentLoanDays = defaults.StudentLoanDays
	}
	if stored.MaxItemsPerLoan <= 0 {
		stored.MaxItemsPerLoan = defaults.MaxItemsPerLoan
	}
	return &ConfigStore{storage: storage, logger: logger, config: stored}, nil
}

func (c *ConfigStore) persist() error {
	return persistSlot(c.storage, slotPolicy, c.config)
}

// Config returns the current policy values.
func (c *ConfigStore) Config() PolicyConfig { return c.config }

// GetLoanDays returns the loan period for an identity class.
func (c *ConfigStore) GetLoanDays(identity IdentityClass) int {
	if identity == IdentityStaff {
		return c.config.StaffLoanDays
	}
	return c.config.StudentLoanDays
}

// MaxItemsPerLoan returns the configured per-loan item cap.
func (c *ConfigStore) MaxItemsPerLoan() int { return c.config.MaxItemsPerLoan }

// UpdateConfig replaces the whole policy record.
func (c *ConfigStore) UpdateConfig(newConfig PolicyConfig) Result {
	if newConfig.StaffLoanDays <= 0 || newConfig.StudentLoanDays <= 0 || newConfig.MaxItemsPerLoan <= 0 {
		return failure("loan periods and max items per loan must be positive")
	}
	c.config = newConfig
	if err := c.persist(); err != nil {
		return failure(fmt.Sprintf("persistence failed: %v", err))
	}
	return success("configuration updated")
}

// ResetToDefault restores the built-in policy values.
func (c *ConfigStore) ResetToDefault() Result {
	c.config = DefaultPolicy()
	if err := c.persist(); err != nil {
		return failure(fmt.Sprintf("persistence failed: %v", err))
	}
	return success("configuration reset to defaults")
}

// PopulateIfEmpty persists the defaults when no policy snapshot exists yet.
func (c *ConfigStore) PopulateIfEmpty() error {
	_, ok, err := c.storage.Load(slotPolicy)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return c.persist()
}
