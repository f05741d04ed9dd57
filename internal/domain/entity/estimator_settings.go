package entity

import "time"

// Alcances de configuración del estimador.
const (
	SettingsScopeCompany  = "company"
	SettingsScopeSupplier = "supplier"
)

// EstimatorSettings días de reposición por empresa, opcionalmente por proveedor.
// Una fila de proveedor tiene prioridad sobre la global de la empresa.
type EstimatorSettings struct {
	CompanyID       string
	SupplierID      *string
	LeadTimeDays    int
	SafetyStockDays int
	CoverageDays    int
	UpdatedAt       time.Time
}

// Scope devuelve el alcance de la fila.
func (s *EstimatorSettings) Scope() string {
	if s.SupplierID != nil {
		return SettingsScopeSupplier
	}
	return SettingsScopeCompany
}
