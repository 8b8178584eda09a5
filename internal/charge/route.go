package charge

import classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"

// Route offers tx to each strategy in list order and returns the one that
// accepted it, or nil.
func Route(chain []Strategy, tx *classifierdomain.ClassifiedTransaction) Strategy {
	for _, s := range chain {
		if s.Accept(tx) {
			return s
		}
	}
	return nil
}
