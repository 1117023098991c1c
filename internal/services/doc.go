// Package services implements the business logic layer of covcheck. It sits
// between the HTTP handlers or CLI and the reconciliation engine.
//
// # Available Services
//
//   - CoverageService: reads the targets and bulk workbooks, reconciles them,
//     writes the matched and missing outputs, lists past runs and serves
//     their files for download
//   - HealthService: liveness, readiness and version information
//
// # Usage
//
//	svc, err := services.NewCoverageService(services.CoverageServiceOptions{
//	    ReportsDir:  paths.ReportsDir,
//	    Format:      exporter.FormatXLSX,
//	    PreviewRows: 5,
//	    Tracer:      providers.Tracer,
//	    Metrics:     metrics,
//	    Logger:      logger,
//	    Retention:   7 * 24 * time.Hour,
//	})
//
//	out, err := svc.Run(ctx, services.RunInput{
//	    Targets: targetsFile,
//	    Bulk:    bulkFile,
//	    Names:   services.InputNames{Targets: "plan.xlsx", Bulk: "bulk.xlsx"},
//	})
//
// # Error Handling
//
// Run returns the engine's typed errors (*reconcile.MissingSheetError,
// *reconcile.MissingColumnError) unchanged. Unreadable workbooks surface as
// parsing AppErrors and write failures as storage AppErrors, so
// errors.ErrorHandler can map each to the right HTTP status.
package services
