package source

import (
	"context"

	"github.com/couchcryptid/covid-cohort-etl/internal/domain"
)

// CohortURLs locates the inputs of the cohort comparison.
type CohortURLs struct {
	Cases            string
	Deaths           string
	Hospital         string
	Population       string
	PopulationColumn string
	Bridge           string
}

// CohortExtractor fetches every cohort input in sequence.
// It implements pipeline.Extractor[domain.CohortSources].
type CohortExtractor struct {
	client *Client
	urls   CohortURLs
}

// NewCohortExtractor creates an extractor for the given sources.
func NewCohortExtractor(client *Client, urls CohortURLs) *CohortExtractor {
	return &CohortExtractor{client: client, urls: urls}
}

// Extract downloads and decodes all five sources. The first failure aborts.
func (e *CohortExtractor) Extract(ctx context.Context) (domain.CohortSources, error) {
	var (
		src domain.CohortSources
		err error
	)
	if src.Cases, err = e.client.FetchTable(ctx, SourceCases, e.urls.Cases); err != nil {
		return domain.CohortSources{}, err
	}
	if src.Deaths, err = e.client.FetchTable(ctx, SourceDeaths, e.urls.Deaths); err != nil {
		return domain.CohortSources{}, err
	}
	if src.Hospital, err = e.client.FetchHospitalRecords(ctx, e.urls.Hospital); err != nil {
		return domain.CohortSources{}, err
	}
	if src.Population, err = e.client.FetchPopulation(ctx, e.urls.Population, e.urls.PopulationColumn); err != nil {
		return domain.CohortSources{}, err
	}
	if src.Bridge, err = e.client.FetchBridge(ctx, e.urls.Bridge); err != nil {
		return domain.CohortSources{}, err
	}
	return src, nil
}

// JurisdictionExtractor fetches the latest jurisdiction workbook sheet.
// It implements pipeline.Extractor[domain.Sheet].
type JurisdictionExtractor struct {
	fetcher *WorkbookFetcher
}

// NewJurisdictionExtractor wraps a workbook fetcher.
func NewJurisdictionExtractor(fetcher *WorkbookFetcher) *JurisdictionExtractor {
	return &JurisdictionExtractor{fetcher: fetcher}
}

// Extract runs the workbook search.
func (e *JurisdictionExtractor) Extract(ctx context.Context) (domain.Sheet, error) {
	return e.fetcher.Fetch(ctx)
}
