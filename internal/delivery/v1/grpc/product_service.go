package grpc

import (
	"context"

	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	productInfoServiceName = "storefront.v1.ProductInfoService"
	GetProductsInfoMethod  = "/" + productInfoServiceName + "/GetProductsInfo"
)

// ProductInfoServer принимает и отдаёт google.protobuf.Struct:
//
//	{storeId: string, ids: [string]} -> {products: [{id, name, category, price, inStock}], notFound: [string]}
type ProductInfoServer interface {
	GetProductsInfo(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var productInfoServiceDesc = grpc.ServiceDesc{
	ServiceName: productInfoServiceName,
	HandlerType: (*ProductInfoServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetProductsInfo", Handler: getProductsInfoHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/product_info.proto",
}

func getProductsInfoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProductInfoServer).GetProductsInfo(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetProductsInfoMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProductInfoServer).GetProductsInfo(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type ProductService struct {
	prUC   usecase.ProductUC
	logger logger.Logger
}

func NewProductService(prUC usecase.ProductUC, logger logger.Logger) *ProductService {
	return &ProductService{prUC: prUC, logger: logger}
}

func (g *ProductService) GetProductsInfo(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	const op = "grpc.GetProductsInfo"

	ucReq, err := toGetProductsReq(req)
	if err != nil {
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	res, err := g.prUC.GetProductsInfo(ctx, ucReq)
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "%s", op)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	out, err := structpb.NewStruct(map[string]any{
		"products": toArrGRPCProduct(res.Products),
		"notFound": toArrString(res.NotFoundProducts),
	})
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "%s: encode response", op)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	return out, nil
}

func toGetProductsReq(req *structpb.Struct) (*usecase.GetProductsReq, error) {
	storeID, err := uuid.Parse(req.GetFields()["storeId"].GetStringValue())
	if err != nil {
		return nil, e.Wrap("storeId", e.ErrInvalidID)
	}

	values := req.GetFields()["ids"].GetListValue().GetValues()
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return nil, e.Wrap("ids", e.ErrInvalidID)
		}
		ids = append(ids, id)
	}

	return &usecase.GetProductsReq{StoreID: storeID, IDs: ids}, nil
}

func toGRPCProduct(pr *usecase.ProductInfo) map[string]any {
	return map[string]any{
		"id":       pr.ID.String(),
		"name":     pr.Name,
		"category": pr.CategoryName,
		"price":    pr.Price.StringFixed(2),
		"inStock":  pr.InStock,
	}
}

func toArrGRPCProduct(prs []usecase.ProductInfo) []any {
	res := make([]any, len(prs))
	for i, p := range prs {
		res[i] = toGRPCProduct(&p)
	}

	return res
}

func toArrString(ids []uuid.UUID) []any {
	res := make([]any, len(ids))
	for i, id := range ids {
		res[i] = id.String()
	}

	return res
}
