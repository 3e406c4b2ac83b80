package entity

// Permission bit de un permiso del POS.
type Permission uint32

const (
	PermViewInventory Permission = 1 << iota
	PermRecordSale
	PermAdjustStock
	PermTransferStock
	PermReceiveStock
	PermManageBatches
	PermViewPurchaseOrders
	PermManagePurchaseOrders
	PermApprovePurchaseOrders
	PermManageSettings
	PermViewAudit
)

// PermissionSet conjunto de permisos como bitset.
type PermissionSet uint32

// Has true si el conjunto incluye p.
func (s PermissionSet) Has(p Permission) bool { return uint32(s)&uint32(p) != 0 }

// Roles del POS.
const (
	RoleOwner      = "owner"
	RoleManager    = "manager"
	RoleCashier    = "cashier"
	RoleStockClerk = "stock_clerk"
)

const allPermissions = PermissionSet(PermViewAudit<<1 - 1)

var rolePermissions = map[string]PermissionSet{
	RoleOwner:   allPermissions,
	RoleManager: allPermissions &^ PermissionSet(PermManageSettings),
	RoleCashier: PermissionSet(PermViewInventory | PermRecordSale),
	RoleStockClerk: PermissionSet(PermViewInventory | PermAdjustStock | PermTransferStock |
		PermReceiveStock | PermManageBatches | PermViewPurchaseOrders),
}

// PermissionsForRole permisos de un rol; rol desconocido = ninguno.
func PermissionsForRole(role string) PermissionSet {
	return rolePermissions[role]
}
