/*
validator.go - Dependency validation for compound writes

PURPOSE:
  Resolves the entities a write depends on, in order: company (when given),
  department (must belong to that company), and the covering budget for the
  operation date. Each failure is a typed RestError; the caller runs this
  inside WithTx so the resolved budget is protected by the transaction's
  writer lock for the rest of the compound write.

SEE ALSO:
  - engine.go: calls these from inside WithTx
  - errors.go: the error classes raised here
*/
package budget

import (
	"context"
	"time"
)

// Dependencies carries the entities resolved for a budget-touching write.
// Budget is the covering budget for the operation date; the enclosing
// transaction guarantees no other writer mutates it mid-operation.
type Dependencies struct {
	Company    *Company
	Department *Department
	Budget     *Budget
}

// validateCompanyDepartment resolves the optional company and the required
// department. A department whose company does not match the given one is
// reported as missing; callers cannot distinguish mismatch from absence.
func validateCompanyDepartment(ctx context.Context, s Store, companyID CompanyID, departmentID DepartmentID) (*Company, *Department, error) {
	var company *Company
	if companyID != 0 {
		c, err := s.GetCompany(ctx, companyID)
		if err != nil {
			return nil, nil, err
		}
		if c == nil {
			return nil, nil, NewCompanyNotFound(companyID)
		}
		company = c
	}
	department, err := s.GetDepartment(ctx, departmentID)
	if err != nil {
		return nil, nil, err
	}
	if department == nil || (companyID != 0 && department.Company != companyID) {
		return nil, nil, NewDepartmentNotFound(departmentID)
	}
	return company, department, nil
}

// validateBudgetDependencies resolves company, department and the covering
// budget for date. No covering budget is a 422, not a 404: the department
// exists but cannot take records on that date.
func validateBudgetDependencies(ctx context.Context, s Store, companyID CompanyID, departmentID DepartmentID, date time.Time) (Dependencies, error) {
	company, department, err := validateCompanyDepartment(ctx, s, companyID, departmentID)
	if err != nil {
		return Dependencies{}, err
	}
	covering, err := s.FindCoveringBudget(ctx, departmentID, date)
	if err != nil {
		return Dependencies{}, err
	}
	if covering == nil {
		return Dependencies{}, NewNoBudgetForDate(departmentID, date)
	}
	return Dependencies{Company: company, Department: department, Budget: covering}, nil
}
