package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/minimarket/go-marketplace-client/gateway"
	"github.com/minimarket/go-marketplace-client/internal/config"
	"github.com/minimarket/go-marketplace-client/marketplace"
	"github.com/minimarket/go-marketplace-client/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if c.GetEnv() != "DEV" {
		logger = logger.Level(zerolog.WarnLevel)
	}

	client, err := marketplace.New(c, marketplace.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("marketplace.New: %w", err)
	}
	defer client.Close()

	client.Session().Subscribe(func(state session.State) {
		if !state.LoggedIn() {
			logger.Info().Msg("session cleared")
		}
	})

	repl(client)
	return nil
}

func repl(client *marketplace.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	printHelp()

	for {
		fmt.Print(prompt(client))
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		ctx := context.Background()
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "help":
			printHelp()
		case "register":
			doRegister(ctx, client, scanner)
		case "login":
			doLogin(ctx, client, scanner)
		case "logout":
			client.Logout()
			fmt.Println("Logged out.")
		case "whoami":
			doWhoami(client)
		case "profile":
			doProfile(ctx, client, scanner, args)
		case "passwd":
			doChangePassword(ctx, client, scanner)
		case "myproducts":
			doMyProducts(ctx, client)
		case "newproduct":
			doNewProduct(ctx, client, scanner)
		case "products":
			doProducts(ctx, client, args)
		case "product":
			doProduct(ctx, client, args)
		case "add":
			doAdd(ctx, client, args)
		case "cart":
			doCart(client)
		case "update":
			doUpdate(client, args)
		case "remove":
			doRemove(client, args)
		case "clear":
			client.Cart().Clear()
			fmt.Println("Cart cleared.")
		case "checkout":
			doCheckout(ctx, client)
		case "orders":
			doOrders(ctx, client, args)
		case "quit", "exit":
			return
		default:
			fmt.Printf("Unknown command %q, try 'help'.\n", cmd)
		}
	}
}

func prompt(client *marketplace.Client) string {
	state := client.Session().State()
	if state.Username != "" {
		return fmt.Sprintf("%s> ", state.Username)
	}
	return "> "
}

func printHelp() {
	fmt.Println(`Commands:
  register              create an account
  login                 log in
  logout                log out and empty the cart
  whoami                show the current session
  profile [edit]        show or edit your buyer/seller profile
  passwd                change your password
  myproducts            list your products (sellers)
  newproduct            create a product (sellers)
  products [page]       browse the catalog
  product <id>          show one product
  add <id> [qty]        add a product to the cart
  cart                  show the cart
  update <id> <qty>     change an entry's quantity
  remove <id>           remove an entry
  clear                 empty the cart
  checkout              submit the cart as an order
  orders [status]       list your orders (PENDING|FAILED|SUCCESS)
  quit                  exit`)
}

func readLine(scanner *bufio.Scanner, label string) string {
	fmt.Printf("%s: ", label)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func readRole(scanner *bufio.Scanner) gateway.Role {
	role := gateway.Role(readLine(scanner, "Role (buyer|seller_admin|seller_employee)"))
	if !role.Valid() {
		fmt.Println("Unknown role, defaulting to buyer.")
		return gateway.RoleBuyer
	}
	return role
}

func doRegister(ctx context.Context, client *marketplace.Client, scanner *bufio.Scanner) {
	input := gateway.RegisterInput{
		Username: readLine(scanner, "Username"),
		Password: readLine(scanner, "Password"),
		Role:     readRole(scanner),
	}
	out, err := client.Register(ctx, input)
	if err != nil {
		fmt.Printf("Registration failed: %s\n", err)
		return
	}
	fmt.Println(messageOr(out.Message, "Registered."))
}

func doLogin(ctx context.Context, client *marketplace.Client, scanner *bufio.Scanner) {
	input := gateway.LoginInput{
		Username: readLine(scanner, "Username"),
		Password: readLine(scanner, "Password"),
		Role:     readRole(scanner),
	}
	if _, err := client.Login(ctx, input); err != nil {
		fmt.Printf("Login failed: %s\n", err)
		return
	}
	state := client.Session().State()
	fmt.Printf("Logged in as %s (%s).\n", state.Username, state.Role)
}

func doWhoami(client *marketplace.Client) {
	state := client.Session().State()
	if !state.LoggedIn() {
		fmt.Println("Not logged in.")
		return
	}
	fmt.Printf("Username: %s\nRole: %s\n", state.Username, state.Role)
	if state.UserID != nil {
		fmt.Printf("User ID: %d\n", *state.UserID)
	}
}

func doProfile(ctx context.Context, client *marketplace.Client, scanner *bufio.Scanner, args []string) {
	state := client.Session().State()
	if !state.LoggedIn() {
		fmt.Println("Not logged in.")
		return
	}
	edit := len(args) > 0 && args[0] == "edit"
	if state.Role == gateway.RoleBuyer {
		doBuyerProfile(ctx, client, scanner, edit)
		return
	}
	doSellerProfile(ctx, client, scanner, edit)
}

func doChangePassword(ctx context.Context, client *marketplace.Client, scanner *bufio.Scanner) {
	state := client.Session().State()
	if !state.LoggedIn() {
		fmt.Println("Not logged in.")
		return
	}
	input := gateway.ChangePasswordInput{
		Username:    state.Username,
		Role:        state.Role,
		OldPassword: readLine(scanner, "Current password"),
		NewPassword: readLine(scanner, "New password"),
	}
	out, err := client.ChangePassword(ctx, input)
	if err != nil {
		fmt.Printf("Password change failed: %s\n", err)
		return
	}
	fmt.Println(messageOr(out.Message, "Password changed."))
}

func doMyProducts(ctx context.Context, client *marketplace.Client) {
	out, err := client.MyProducts(ctx)
	if err != nil {
		fmt.Printf("Failed to load your products: %s\n", err)
		return
	}
	if len(out.Products) == 0 {
		fmt.Println("You have no products yet. Use 'newproduct' to list one.")
		return
	}
	for _, p := range out.Products {
		printProduct(p)
	}
}

func doNewProduct(ctx context.Context, client *marketplace.Client, scanner *bufio.Scanner) {
	state := client.Session().State()
	if state.UserID == nil {
		fmt.Println("Not logged in.")
		return
	}

	input := gateway.CreateProductInput{
		Name:     readLine(scanner, "Name"),
		SellerID: *state.UserID,
	}
	price, err := strconv.ParseFloat(readLine(scanner, "Price"), 64)
	if err != nil || price < 0 {
		fmt.Println("Price must be a non-negative number.")
		return
	}
	inventory, err := strconv.Atoi(readLine(scanner, "Inventory"))
	if err != nil || inventory < 0 {
		fmt.Println("Inventory must be a non-negative integer.")
		return
	}
	input.Price = price
	input.Inventory = inventory

	out, err := client.CreateProduct(ctx, input)
	if err != nil {
		fmt.Printf("Failed to create product: %s\n", err)
		return
	}
	fmt.Println(messageOr(out.Message, "Product created."))
}

func doBuyerProfile(ctx context.Context, client *marketplace.Client, scanner *bufio.Scanner, edit bool) {
	existing, err := client.BuyerProfile(ctx)
	if !edit {
		if err != nil || existing.Buyer == nil {
			fmt.Println("No buyer profile yet. Use 'profile edit' to create one.")
			return
		}
		b := existing.Buyer
		fmt.Printf("Name: %s\nGender: %s\nDate of birth: %s\nPhone: %s\nAddress: %s\n",
			b.Name, b.Gender, b.DateOfBirth, b.Phone, b.Address)
		return
	}

	profile := gateway.BuyerProfile{
		Name:        readLine(scanner, "Name"),
		Gender:      readLine(scanner, "Gender"),
		DateOfBirth: readLine(scanner, "Date of birth (YYYY-MM-DD)"),
		Phone:       readLine(scanner, "Phone"),
		Address:     readLine(scanner, "Address"),
	}
	create := err != nil || existing.Buyer == nil
	out, err := client.SaveBuyerProfile(ctx, profile, create)
	if err != nil {
		fmt.Printf("Failed to save profile: %s\n", err)
		return
	}
	fmt.Println(messageOr(out.Message, "Profile saved."))
}

func doSellerProfile(ctx context.Context, client *marketplace.Client, scanner *bufio.Scanner, edit bool) {
	existing, err := client.SellerProfile(ctx)
	if !edit {
		if err != nil || existing.Seller == nil {
			fmt.Println("No seller profile yet. Use 'profile edit' to create one.")
			return
		}
		s := existing.Seller
		fmt.Printf("Name: %s\nBank account: %s\nTax code: %s\nDescription: %s\nPhone: %s\nAddress: %s\n",
			s.Name, s.BankAccount, s.TaxCode, s.Description, s.Phone, s.Address)
		return
	}

	profile := gateway.SellerProfile{
		Name:        readLine(scanner, "Name"),
		BankAccount: readLine(scanner, "Bank account"),
		TaxCode:     readLine(scanner, "Tax code"),
		Description: readLine(scanner, "Description"),
		DateOfBirth: readLine(scanner, "Date of birth (YYYY-MM-DD)"),
		Phone:       readLine(scanner, "Phone"),
		Address:     readLine(scanner, "Address"),
	}
	create := err != nil || existing.Seller == nil
	out, err := client.SaveSellerProfile(ctx, profile, create)
	if err != nil {
		fmt.Printf("Failed to save profile: %s\n", err)
		return
	}
	fmt.Println(messageOr(out.Message, "Profile saved."))
}

func doProducts(ctx context.Context, client *marketplace.Client, args []string) {
	page := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			page = n
		}
	}
	out, err := client.Products(ctx, page, 20)
	if err != nil {
		fmt.Printf("Failed to load products: %s\n", err)
		return
	}
	for _, p := range out.Products {
		printProduct(p)
	}
	if len(out.Products) == 0 {
		fmt.Println("No products on this page.")
	}
}

func doProduct(ctx context.Context, client *marketplace.Client, args []string) {
	id, ok := parseID(args)
	if !ok {
		fmt.Println("Usage: product <id>")
		return
	}
	out, err := client.ProductByID(ctx, id)
	if err != nil {
		fmt.Printf("Failed to load product: %s\n", err)
		return
	}
	if out.Product == nil {
		fmt.Println("Product not found.")
		return
	}
	printProduct(*out.Product)
}

func doAdd(ctx context.Context, client *marketplace.Client, args []string) {
	id, ok := parseID(args)
	if !ok {
		fmt.Println("Usage: add <id> [qty]")
		return
	}
	quantity := 1
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			quantity = n
		}
	}
	out, err := client.ProductByID(ctx, id)
	if err != nil {
		fmt.Printf("Failed to load product: %s\n", err)
		return
	}
	if out.Product == nil {
		fmt.Println("Product not found.")
		return
	}
	client.Cart().AddItem(*out.Product, quantity)
	fmt.Printf("Added %q. Cart now holds %d item(s).\n", out.Product.Name, client.Cart().TotalQuantity())
}

func doCart(client *marketplace.Client) {
	entries := client.Cart().Entries()
	if len(entries) == 0 {
		fmt.Println("Cart is empty.")
		return
	}
	for _, entry := range entries {
		id := "-"
		if entry.Product.ID != nil {
			id = strconv.FormatInt(*entry.Product.ID, 10)
		}
		fmt.Printf("  [%s] %s x%d @ %.0f\n", id, entry.Product.Name, entry.Quantity, entry.Product.Price)
		if !entry.Modifiable() {
			fmt.Println("      (missing product id; reload from catalog to modify or check out)")
		}
	}
	fmt.Printf("Total: %d item(s), %.0f\n", client.Cart().TotalQuantity(), client.Cart().TotalPrice())
}

func doUpdate(client *marketplace.Client, args []string) {
	id, ok := parseID(args)
	if !ok || len(args) < 2 {
		fmt.Println("Usage: update <id> <qty>")
		return
	}
	quantity, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Println("Usage: update <id> <qty>")
		return
	}
	client.Cart().UpdateItemQuantity(id, quantity)
	doCart(client)
}

func doRemove(client *marketplace.Client, args []string) {
	id, ok := parseID(args)
	if !ok {
		fmt.Println("Usage: remove <id>")
		return
	}
	client.Cart().RemoveItem(id)
	doCart(client)
}

func doCheckout(ctx context.Context, client *marketplace.Client) {
	out, err := client.Checkout(ctx)
	if err != nil {
		fmt.Printf("Checkout failed: %s\n", err)
		return
	}
	fmt.Println(messageOr(out.Message, "Order placed."))
}

func doOrders(ctx context.Context, client *marketplace.Client, args []string) {
	status := gateway.OrderStatusPending
	if len(args) > 0 {
		status = gateway.OrderStatus(strings.ToUpper(args[0]))
	}
	out, err := client.Orders(ctx, status)
	if err != nil {
		fmt.Printf("Failed to load orders: %s\n", err)
		return
	}
	if len(out.Orders) == 0 {
		fmt.Printf("No %s orders.\n", status)
		return
	}
	for _, order := range out.Orders {
		id := "-"
		if order.ID != nil {
			id = strconv.FormatInt(*order.ID, 10)
		}
		fmt.Printf("  Order %s [%s] total %.0f, %d item(s)\n", id, order.Status, order.TotalPrice, len(order.OrderItems))
	}
}

func printProduct(p gateway.Product) {
	id := "-"
	if p.ID != nil {
		id = strconv.FormatInt(*p.ID, 10)
	}
	fmt.Printf("  [%s] %s - %.0f (%d in stock, seller %d)\n", id, p.Name, p.Price, p.Inventory, p.SellerID)
}

func parseID(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func messageOr(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
