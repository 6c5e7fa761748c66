package auth

import "testing"

func TestValidatePermissions(t *testing.T) {
	t.Run("all known permissions are valid", func(t *testing.T) {
		perms := []string{
			"cadastrar_contas",
			"registrar_cobranca",
			"consultar_extratos",
			"enviar_mensagens",
			"gerenciar_usuarios",
		}
		if err := ValidatePermissions(perms); err != nil {
			t.Errorf("ValidatePermissions() unexpected error: %v", err)
		}
	})

	t.Run("unknown permission is rejected", func(t *testing.T) {
		if err := ValidatePermissions([]string{"consultar_extratos", "apagar_tudo"}); err == nil {
			t.Error("ValidatePermissions() expected error for unknown permission, got nil")
		}
	})

	t.Run("empty list is valid", func(t *testing.T) {
		if err := ValidatePermissions(nil); err != nil {
			t.Errorf("ValidatePermissions(nil) unexpected error: %v", err)
		}
	})
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		perms    []string
		required Permission
		want     bool
	}{
		{"direct grant", "coop", []string{"consultar_extratos"}, PermissionViewStatements, true},
		{"missing grant", "coop", []string{"enviar_mensagens"}, PermissionViewStatements, false},
		{"empty permissions", "coop", nil, PermissionViewStatements, false},
		{"admin unit bypasses grants", AdminUnit, nil, PermissionManageUsers, true},
		{"admin unit with unrelated grants", AdminUnit, []string{"enviar_mensagens"}, PermissionRegisterAccounts, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasPermission(tt.unit, tt.perms, tt.required)
			if got != tt.want {
				t.Errorf("HasPermission(%q, %v, %q) = %v, want %v", tt.unit, tt.perms, tt.required, got, tt.want)
			}
		})
	}
}

func TestCanAccessUnit(t *testing.T) {
	tests := []struct {
		name       string
		userUnit   string
		targetUnit string
		want       bool
	}{
		{"own unit", "coop", "coop", true},
		{"other unit", "coop", "vila haro", false},
		{"admin any unit", AdminUnit, "vila haro", true},
		{"admin all-units sentinel", AdminUnit, AllUnitsSentinel, true},
		{"non-admin all-units sentinel", "coop", AllUnitsSentinel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanAccessUnit(tt.userUnit, tt.targetUnit)
			if got != tt.want {
				t.Errorf("CanAccessUnit(%q, %q) = %v, want %v", tt.userUnit, tt.targetUnit, got, tt.want)
			}
		})
	}
}

func TestAdminPermissions(t *testing.T) {
	perms := AdminPermissions()
	if len(perms) != len(AllPermissions()) {
		t.Fatalf("AdminPermissions() returned %d permissions, want %d", len(perms), len(AllPermissions()))
	}
	if err := ValidatePermissions(perms); err != nil {
		t.Errorf("AdminPermissions() contains invalid permission: %v", err)
	}
}
