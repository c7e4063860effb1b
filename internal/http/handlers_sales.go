package http

import (
	"net/http"

	"gymdesk/internal/core"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.Products.List(r.Context())
	if err != nil {
		writeError(w, r, "list_products", err)
		return
	}
	if products == nil {
		products = []core.Product{}
	}
	NewJSONResponse().Body(products).Write(w)
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.Products.LowStock(r.Context())
	if err != nil {
		writeError(w, r, "low_stock", err)
		return
	}
	if products == nil {
		products = []core.Product{}
	}
	NewJSONResponse().Body(products).Write(w)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in core.NewProduct
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, "create_product", err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Category = sanitizeInput(in.Category)

	p, err := s.svc.Products.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, "create_product", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(p).Write(w)
}

type saleRequest struct {
	Items  []core.CartLine    `json:"items"`
	Method core.PaymentMethod `json:"method"`
}

type saleResponse struct {
	Sales []core.Sale `json:"sales"`
	Total core.Money  `json:"total"`
}

func (s *Server) handleCommitSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, "commit_sale", err)
		return
	}

	sales, err := s.svc.Sales.CommitSale(r.Context(), req.Items, req.Method, s.now())
	if err != nil {
		writeError(w, r, "commit_sale", err)
		return
	}
	resp := saleResponse{Sales: sales}
	for _, sale := range sales {
		resp.Total = resp.Total.Add(sale.TotalPrice)
	}
	NewJSONResponse().Status(http.StatusCreated).Body(resp).Write(w)
}
