package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/salary-api/internal/middleware"
	"github.com/noah-isme/salary-api/internal/models"
	"github.com/noah-isme/salary-api/internal/service"
	"github.com/noah-isme/salary-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/salary-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/salary-api/pkg/middleware/requestid"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// RouterOptions configures the engine built by NewRouter.
type RouterOptions struct {
	APIPrefix      string
	Production     bool
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         tokenValidator
}

// Handlers groups the HTTP handlers mounted by NewRouter. A nil Exports handler leaves the export
// routes unmounted.
type Handlers struct {
	Auth        *AuthHandler
	Employees   *EmployeeHandler
	Departments *DepartmentHandler
	Payroll     *PayrollHandler
	Kharcha     *KharchaHandler
	Exports     *ExportHandler
	Metrics     *MetricsHandler
}

// NewRouter builds the gin engine with the middleware chain and every route group.
func NewRouter(opts RouterOptions, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	prefix := "/" + strings.Trim(opts.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if !opts.Production {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.GET("/me", middleware.JWT(opts.Tokens), h.Auth.Me)

	if h.Exports != nil {
		// The signed token authorises the download on its own.
		api.GET("/exports/download/:token", h.Exports.Download)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(opts.Tokens))
	writers := middleware.RequireRoles(models.RoleAdmin, models.RoleAccountant)
	admins := middleware.RequireRoles(models.RoleAdmin)

	employees := protected.Group("/employees")
	employees.GET("", h.Employees.List)
	employees.GET("/count", h.Employees.Count)
	employees.GET("/departments", h.Employees.Departments)
	employees.GET("/replacements/:id", h.Employees.Replacement)
	employees.GET("/replacements/:id/adjacent", h.Employees.AdjacentReplacements)
	employees.GET("/:id", h.Employees.Get)
	employees.POST("", writers, h.Employees.Create)
	employees.PUT("/:id", writers, h.Employees.Update)
	employees.DELETE("/:id", admins, h.Employees.Delete)
	employees.PUT("/:id/deactivate", writers, h.Employees.Deactivate)
	employees.PUT("/:id/activate", writers, h.Employees.Activate)
	employees.GET("/:id/expenses", h.Employees.ListExpenses)
	employees.POST("/:id/expenses", writers, h.Employees.AddExpense)
	employees.GET("/:id/loans", h.Employees.ListLoans)
	employees.POST("/:id/loans", writers, h.Employees.AddLoan)
	employees.POST("/:id/replace", writers, h.Employees.Replace)
	employees.GET("/:id/replacements", h.Employees.ReplacementHistory)
	employees.GET("/:id/replacement-chain", h.Employees.ReplacementChain)
	employees.GET("/:id/latest-replacement", h.Employees.LatestReplacement)

	departments := protected.Group("/departments")
	departments.GET("", h.Departments.List)
	departments.GET("/:id", h.Departments.Get)
	departments.GET("/:id/salary-history", h.Departments.SalaryHistory)
	departments.POST("", writers, h.Departments.Create)
	departments.PUT("/:id", writers, h.Departments.Update)
	departments.DELETE("/:id", admins, h.Departments.Delete)

	payroll := protected.Group("/payroll")
	payroll.GET("/periods", h.Payroll.ListPeriods)
	payroll.POST("/periods", writers, h.Payroll.CreatePeriod)
	payroll.POST("/department/:departmentId/generate", writers, h.Payroll.Generate)
	payroll.GET("/department/:departmentId/employees", h.Payroll.EligibleEmployees)
	payroll.GET("/department/:departmentId/period/:periodId", h.Payroll.DepartmentPayroll)
	payroll.GET("/payslip/:payrollId", h.Payroll.Payslip)
	payroll.GET("/payslip/:payrollId/pdf", h.Payroll.PayslipPDF)
	payroll.GET("/employee/:employeeId/leaves/:periodId", h.Payroll.LeaveSummary)

	kharcha := protected.Group("/kharcha")
	kharcha.GET("", h.Kharcha.List)
	kharcha.GET("/export", h.Kharcha.ExportCSV)
	kharcha.GET("/stats/summary", h.Kharcha.Summary)
	kharcha.GET("/stats/department-summary", h.Kharcha.DepartmentSummary)
	kharcha.GET("/stats/period-summary", h.Kharcha.PeriodSummary)
	kharcha.GET("/meta/periods", h.Kharcha.PeriodSummary)
	kharcha.GET("/department/:id", h.Kharcha.ByDepartment)
	kharcha.GET("/period/:id", h.Kharcha.ByPeriod)
	kharcha.GET("/:id", h.Kharcha.Get)
	kharcha.POST("", writers, h.Kharcha.Create)
	kharcha.POST("/bulk", writers, h.Kharcha.Bulk)
	kharcha.PUT("/:id", writers, h.Kharcha.Update)
	kharcha.DELETE("/:id", writers, h.Kharcha.Delete)

	if h.Exports != nil {
		exports := protected.Group("/exports")
		exports.POST("", h.Exports.Create)
		exports.GET("/:id", h.Exports.Status)
	}

	return r
}
