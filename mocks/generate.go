package mocks

//go:generate mockgen -destination=./mock_submitter.go -package=mocks github.com/rxtech-lab/argo-replay/internal/strategy Submitter
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-replay/internal/datasource PriceSource
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/argo-replay/pkg/marketdata/provider Provider
