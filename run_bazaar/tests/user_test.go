package tests

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSignupAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	for i := 0; i < 5; i++ {
		username := fmt.Sprintf("user%d", i)
		email := fmt.Sprintf("user%d@mail.com", i)
		password := fmt.Sprintf("user%d_password", i)

		client := env.newClient()
		login, err := client.signup(username, email, password)
		if err != nil {
			t.Fatal(err)
		}

		_, err = client.signup(username, email, password)
		if err == nil {
			t.Fatal("duplicate signup should fail")
		}

		err = client.login(loginInfo{Email: "user@mail.com", Password: password})
		if err == nil {
			t.Fatal("login should fail with wrong email")
		}

		err = client.login(loginInfo{Email: username, Password: "password"})
		if err == nil {
			t.Fatal("login fail with wrong password")
		}

		err = client.login(login)
		if err != nil {
			t.Fatal(err)
		}

		info, err := client.userInfo()
		if err != nil {
			t.Fatal(err)
		}

		if info.Username != username || info.Email != email || info.Id.String() != client.userId || info.Admin {
			t.Fatalf("invalid info %v", info)
		}
	}
}

func TestAddUser(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	client := env.newClient()

	_, err = user.addUser("xyz", "xyz@mail.com", "123")
	if !errors.Is(err, ErrForbidden) {
		t.Fatal("users cannot add users")
	}

	err = client.login(loginInfo{Email: "xyz@mail.com", Password: "123"})
	if !strings.Contains(err.Error(), "no user found for given email") {
		t.Fatalf("no login should be created: %v", err)
	}

	_, err = admin.addUser("xyz", "xyz@mail.com", "123")
	if err != nil {
		t.Fatal(err)
	}

	err = client.login(loginInfo{Email: "xyz@mail.com", Password: "123"})
	if err != nil {
		t.Fatal("new user should be created")
	}
}

func TestListUsers(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	user1, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.newUser("xyz")
	if err != nil {
		t.Fatal(err)
	}

	users, err := admin.listUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 3 {
		t.Fatal("expected 3 users for admin list")
	}
	sortUserList(users)
	if users[0].Username != "abc" || users[1].Username != adminUsername || users[2].Username != "xyz" {
		t.Fatalf("invalid admin user list %v", users)
	}

	users, err = user1.listUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Username != "abc" {
		t.Fatalf("invalid user1 user list: %v", users)
	}

	client := env.newClient()
	_, err = client.listUsers()
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatal("expected unauthorized error")
	}
}

func checkAdminStatus(c client, t *testing.T, isAdmin bool) {
	info, err := c.userInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Admin != isAdmin {
		t.Fatalf("expected IsAdmin to be %v, got %v", isAdmin, info.Admin)
	}
}

func TestPromoteDemoteAdmin(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	user1, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	user2, err := env.newUser("xyz")
	if err != nil {
		t.Fatal(err)
	}

	err = user1.promoteAdmin(user1.userId)
	if !errors.Is(err, ErrForbidden) {
		t.Fatal("users can't promote admins")
	}

	err = user1.promoteAdmin(user2.userId)
	if !errors.Is(err, ErrForbidden) {
		t.Fatal("users can't promote admins")
	}

	checkAdminStatus(admin, t, true)
	checkAdminStatus(user1, t, false)
	checkAdminStatus(user2, t, false)

	err = admin.promoteAdmin(user1.userId)
	if err != nil {
		t.Fatalf("admin should be able to promote admin: %v", err)
	}

	checkAdminStatus(admin, t, true)
	checkAdminStatus(user1, t, true)
	checkAdminStatus(user2, t, false)

	err = user1.promoteAdmin(user2.userId)
	if err != nil {
		t.Fatal("new admin should be able to promote admin")
	}

	checkAdminStatus(admin, t, true)
	checkAdminStatus(user1, t, true)
	checkAdminStatus(user2, t, true)

	err = admin.demoteAdmin(user1.userId)
	if err != nil {
		t.Fatalf("admin should be demoted %v", err)
	}

	checkAdminStatus(admin, t, true)
	checkAdminStatus(user1, t, false)
	checkAdminStatus(user2, t, true)

	err = user1.demoteAdmin(user2.userId)
	if !errors.Is(err, ErrForbidden) {
		t.Fatal("non admin cannot demote admin")
	}
}

func TestDemoteLastAdmin(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	err = admin.demoteAdmin(admin.userId)
	if err == nil || !strings.Contains(err.Error(), "no admins left") {
		t.Fatalf("cannot demote the only admin: %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	r1, err := user.submitPPO(submitArgs{RunName: "r1", Config: exampleConfig(t)})
	if err != nil {
		t.Fatal(err)
	}

	r2, err := user.submitPPO(submitArgs{RunName: "r2", Config: exampleConfig(t)})
	if err != nil {
		t.Fatal(err)
	}

	users, err := admin.listUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatal("invalid users")
	}

	err = admin.deleteUser(user.userId)
	if err != nil {
		t.Fatal(err)
	}

	users, err = admin.listUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Id.String() != admin.userId {
		t.Fatal("invalid users")
	}

	runs, err := admin.listRuns()
	if err != nil {
		t.Fatal(err)
	}
	sortRunList(runs)
	if len(runs) != 2 || runs[0].RunId.String() != r1 || runs[1].RunId.String() != r2 {
		t.Fatal("deleted user's runs should be reassigned, not deleted")
	}
}
